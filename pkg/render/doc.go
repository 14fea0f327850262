// Package render holds the stage-graph renderers.
//
// The [nodelink] subpackage draws the stage DAG as a Graphviz node-link
// diagram, one box per stage, ranked by depth from the leaf stages.
//
// [nodelink]: github.com/matzehuels/stagetower/pkg/render/nodelink
package render
