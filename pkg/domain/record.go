package domain

import "sort"

// Record maps interface names to values. It is the shape of both the input and
// the output of a calculation.
type Record map[string]any

// Keys returns the record's keys in lexical order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CalculationResult maps node IDs to the outputs computed during one run.
// It is created fresh for every run and owned by the caller.
type CalculationResult map[string]Record

// Merge copies every entry of other into r, replacing existing node entries.
func (r CalculationResult) Merge(other CalculationResult) {
	for id, rec := range other {
		r[id] = rec
	}
}

// NodeIDs returns the IDs of the calculated nodes in lexical order.
func (r CalculationResult) NodeIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
