// Package dag provides the directed graph that connects the stages of a
// multi-stage query plan.
//
// # Overview
//
// Every node is a stage, identified by its stage number. An edge runs from
// an input stage to the stage that consumes its output, so data flows from
// [DAG.Sources] (stages reading only tables or external data) down to
// [DAG.Sinks] (stages whose output nobody else reads, usually the final
// result stage).
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: 0})
//	g.AddNode(dag.Node{ID: 1})
//	g.AddEdge(dag.Edge{From: 0, To: 1})
//
// [DAG.AddEdge] rejects edges whose endpoints were never added, which is how
// the graph builder in package stages detects dangling input references.
// [DAG.Validate] rejects cycles, and [DAG.Depths] assigns each stage its
// longest-path distance from a source, used to rank stages in diagrams.
//
// # Concurrency
//
// DAG is not safe for concurrent mutation. Build it once, then share it
// read-only.
package dag
