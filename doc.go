/*
Package nodeflow evaluates dataflow graphs: nodes with typed input and output
interfaces, wired by connections, recalculated by a pluggable engine.

# Concept

A graph is a set of nodes. Each node declares named inputs and outputs and may
carry a calculation that maps an input record to an output record. A
connection carries an output value into an input. An engine decides when and
in which order calculations run:

  - The dependency engine recalculates every node in topological order.
  - The forward engine pushes values downstream from the node that changed.

Engines are created through a registry by type tag, so hosts can plug in their
own strategies.

# Usage

Graphs are usually described as YAML or JSON documents and materialised with
the node catalogue:

	host, err := nodeflow.New()
	if err != nil {
		log.Fatal(err)
	}

	doc, err := document.ReadFile("graph.yaml")
	if err != nil {
		log.Fatal(err)
	}

	result, err := host.RunDocument(ctx, doc, nodeflow.RunOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result["n1"]["c"])

Live graphs can also be built in code with pkg/domain and driven directly by an
engine from pkg/engine, which then reacts to value changes on its own:

	eng := engine.NewDependency(g)
	_ = eng.Start()
	defer eng.Stop()
*/
package nodeflow
