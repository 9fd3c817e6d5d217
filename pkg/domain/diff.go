package domain

import (
	"reflect"
	"sort"
)

// ResultDiff describes how one calculation result differs from a previous one.
// It is designed to be serialized to JSON for partial updates on a client.
type ResultDiff struct {
	// Changed holds, per node, only the outputs that were added or whose
	// value changed. An output missing from the new result is present with a
	// nil value.
	Changed CalculationResult `json:"changed,omitempty"`

	// Removed lists nodes calculated before but not anymore.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between previous and current. A nil previous
// yields the whole current result. Equal results yield nil.
func Diff(previous, current CalculationResult) *ResultDiff {
	diff := &ResultDiff{Changed: CalculationResult{}}

	for nodeID, rec := range current {
		delta := diffRecord(previous[nodeID], rec)
		if len(delta) > 0 {
			diff.Changed[nodeID] = delta
		}
	}
	for nodeID := range previous {
		if _, ok := current[nodeID]; !ok {
			diff.Removed = append(diff.Removed, nodeID)
		}
	}
	sort.Strings(diff.Removed)

	if len(diff.Changed) == 0 && len(diff.Removed) == 0 {
		return nil
	}
	if len(diff.Changed) == 0 {
		diff.Changed = nil
	}
	return diff
}

func diffRecord(previous, current Record) Record {
	delta := Record{}
	for k, v := range current {
		old, existed := previous[k]
		if !existed || !reflect.DeepEqual(old, v) {
			delta[k] = v
		}
	}
	for k := range previous {
		if _, ok := current[k]; !ok {
			delta[k] = nil
		}
	}
	return delta
}
