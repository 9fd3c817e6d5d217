/*
Package dsl provides a fluent Go API for constructing graph documents.

It is an alternative to writing YAML or JSON by hand, useful for generated
graphs and for tests.

Example usage:

	b := dsl.New("pricing")

	b.Add("qty", nodes.TypeValue).Set("value", 3).To("value", "total:a")
	b.Add("price", nodes.TypeValue).Set("value", 9.5).To("value", "total:b")
	b.Add("total", nodes.TypeMath).Set("operation", "multiply")

	doc, err := b.Build()
	// doc can be saved with a ports.GraphStore or run with Host.RunDocument.
*/
package dsl
