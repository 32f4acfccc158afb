// Package status computes the effective liveness of a record from its own
// active flag, its date-validity window, and every record it references.
// The result is derived fresh on every read and is never persisted.
package status

import "time"

// Node is a record's resolved status inputs. References are resolved
// breadth-first by the mapping layer before folding, so evaluation is a pure
// function over plain data with no hidden I/O. A reference that could not be
// resolved is simply not appended and therefore defaults to effective.
type Node struct {
	Active bool
	Start  *time.Time
	End    *time.Time
	Refs   []Node
}

// Leaf builds a windowless node with no references.
func Leaf(active bool) Node {
	return Node{Active: active}
}

// Windowed builds a node valid between start and end inclusive.
func Windowed(active bool, start, end time.Time) Node {
	return Node{Active: active, Start: &start, End: &end}
}

// WithRefs returns a copy of n referencing the given nodes.
func (n Node) WithRefs(refs ...Node) Node {
	n.Refs = append(n.Refs, refs...)
	return n
}

// Effective reports whether the record is live at the given instant:
// its own flag is set, now falls inside its window (when it has one), and
// every referenced record is itself effective. The reference graph is a DAG
// bounded by the document structure, so the recursion terminates.
func Effective(now time.Time, n Node) bool {
	if !n.Active {
		return false
	}
	if n.Start != nil && now.Before(*n.Start) {
		return false
	}
	if n.End != nil && now.After(*n.End) {
		return false
	}
	for _, ref := range n.Refs {
		if !Effective(now, ref) {
			return false
		}
	}
	return true
}
