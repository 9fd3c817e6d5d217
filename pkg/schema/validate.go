package schema

import "sort"

// Schema maps interface names to their expected types.
type Schema map[string]Type

// Validate checks the values present in data against the schema. Names the
// schema does not know and nil values are not checked. Failures are returned
// together, sorted by name.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		typ, ok := schema[name]
		value := data[name]
		if !ok || typ == nil || value == nil {
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
