// Package schema describes the kind of value a node interface expects.
//
// Node types attach a Type to each declared input. Values written into a
// document are checked against it before a run, so a string left in a numeric
// input shows up as a warning instead of a decode error halfway through a run:
//
//	s := schema.Schema{
//	    "a":         schema.Number(),
//	    "operation": schema.OneOf("add", "subtract"),
//	}
//	if err := schema.Validate(s, map[string]any{"a": "ten"}); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Types can also be parsed from names ("number", "string", "bool", "[number]").
package schema
