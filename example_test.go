package nodeflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/pkg/dsl"
	"github.com/hgl-pong/baklavajs-sub000/pkg/engine"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
)

// ExampleHost_RunDocument builds a graph in Go and evaluates it once with the
// default (dependency) engine.
func ExampleHost_RunDocument() {
	b := dsl.New("pricing")
	b.Add("qty", nodes.TypeValue).Set("value", 3).To("value", "total:a")
	b.Add("price", nodes.TypeValue).Set("value", 9.5).To("value", "total:b")
	b.Add("total", nodes.TypeMath).Set("operation", "multiply")

	doc, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	host, err := nodeflow.New()
	if err != nil {
		log.Fatal(err)
	}

	result, err := host.RunDocument(context.Background(), doc, nodeflow.RunOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result["total"]["result"])

	// Overrides replace unconnected input values for this run only.
	result, err = host.RunDocument(context.Background(), doc, nodeflow.RunOptions{
		Engine:    engine.TypeDependency,
		Overrides: map[string]any{"qty:value": 4},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result["total"]["result"])

	// Output:
	// 28.5
	// 38
}
