// Package uniqueness validates natural keys before a save. A natural key is
// the tuple of foreign-key codes that functionally identifies a record
// within its family (vendor+route+container size, quotation line lane, and
// so on). The guard runs in application code; unique partial indexes at the
// store back it up.
package uniqueness

import (
	"fmt"

	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// Field is one component of a natural key with the form path it should be
// reported on when it collides.
type Field struct {
	Path  string
	Value string
}

// Key is an ordered natural-key tuple.
type Key []Field

// Matches reports whether two keys carry identical values position by
// position. Keys of different shapes never match.
func (k Key) Matches(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i].Value != other[i].Value {
			return false
		}
	}
	return true
}

// Candidate is an existing record the key is checked against. Effective is
// the status-resolved liveness; retired records never collide.
type Candidate struct {
	ID        int64
	Key       Key
	Effective bool
}

// Check reports a collision when another effectively active record carries
// the same natural key. selfID is the record being edited (0 on create);
// editing a record to keep its own key is not a collision. Every field of
// the key is named in the failure so the form can highlight all of them.
func Check(key Key, selfID int64, candidates []Candidate) *shared.FieldErrors {
	fe := &shared.FieldErrors{}
	for _, c := range candidates {
		if c.ID == selfID || !c.Effective {
			continue
		}
		if key.Matches(c.Key) {
			for _, f := range key {
				fe.Add(f.Path, "already used by another active record")
			}
			return fe
		}
	}
	return fe
}

// CheckBatch detects natural-key duplicates among the submitted sibling rows
// themselves, independent of anything persisted. Paths are prefixed with the
// row index, e.g. "details[2].route".
func CheckBatch(prefix string, keys []Key) *shared.FieldErrors {
	fe := &shared.FieldErrors{}
	for i := range keys {
		for j := 0; j < i; j++ {
			if keys[i].Matches(keys[j]) {
				for _, f := range keys[i] {
					fe.Add(fmt.Sprintf("%s[%d].%s", prefix, i, f.Path), fmt.Sprintf("duplicates the line at position %d", j))
				}
				break
			}
		}
	}
	return fe
}
