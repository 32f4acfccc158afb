// Package reconcile diffs a submitted detail list against the persisted one
// and produces the minimal insert/update/delete batch. Every master-detail
// document type (quotations, price lists, inquiries, delivery notes,
// requests) applies the resulting plan inside a single transaction.
package reconcile

import (
	"fmt"

	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// Row is a detail line keyed by its persisted identity. New rows carry
// identity 0 and are always inserted.
type Row interface {
	Identity() int64
}

// Plan is the operation set that turns the persisted detail set into the
// submitted one. Rows absent from all three slices are left untouched.
type Plan[T Row] struct {
	Inserts   []T
	Updates   []T
	DeleteIDs []int64
}

// Empty reports whether applying the plan would change nothing.
func (p Plan[T]) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.DeleteIDs) == 0
}

// Diff computes the plan for one parent document. A submitted identity that
// matches a persisted row becomes an update of that row; an identity unknown
// to the persisted set, or a zero identity, becomes an insert. Persisted
// rows missing from the submitted set are deleted. Two submitted rows
// sharing a non-zero identity are rejected as a validation failure rather
// than silently collapsed.
func Diff[T Row](persisted, submitted []T) (Plan[T], error) {
	var plan Plan[T]

	existing := make(map[int64]struct{}, len(persisted))
	for _, row := range persisted {
		existing[row.Identity()] = struct{}{}
	}

	seen := make(map[int64]int, len(submitted))
	fe := &shared.FieldErrors{}
	kept := make(map[int64]struct{}, len(submitted))

	for i, row := range submitted {
		id := row.Identity()
		if id == 0 {
			plan.Inserts = append(plan.Inserts, row)
			continue
		}
		if first, dup := seen[id]; dup {
			fe.Add(fmt.Sprintf("details[%d]", i), fmt.Sprintf("duplicates the line at position %d", first))
			continue
		}
		seen[id] = i

		if _, ok := existing[id]; ok {
			plan.Updates = append(plan.Updates, row)
			kept[id] = struct{}{}
		} else {
			// Identity points at a row this parent never owned; treat the
			// submission as a new line.
			plan.Inserts = append(plan.Inserts, row)
		}
	}
	if err := fe.Err(); err != nil {
		return Plan[T]{}, err
	}

	for _, row := range persisted {
		if _, ok := kept[row.Identity()]; !ok {
			plan.DeleteIDs = append(plan.DeleteIDs, row.Identity())
		}
	}

	return plan, nil
}
