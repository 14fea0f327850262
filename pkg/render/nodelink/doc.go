// Package nodelink renders the stage graph of a report as a node-link
// diagram.
//
// [ToDOT] produces Graphviz DOT source with one rounded box per stage, edges
// from each input stage to its consumer, and stages of equal depth on the
// same rank. Sink stages (those whose output is the query result) get a
// heavier outline. [RenderSVG] renders DOT in-process with
// [github.com/goccy/go-graphviz]:
//
//	g, _ := stages.BuildGraph(report.Stages)
//	dot := nodelink.ToDOT(g, nodelink.Options{Progress: progress})
//	svg, err := nodelink.RenderSVG(ctx, dot)
package nodelink
