package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stagetower/pkg/dag"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds worker count, sort flag and any other metadata to labels.
	Detailed bool
	// Progress, when set, adds a percentage line to each stage's label.
	Progress map[int]float64
}

var phaseFill = map[string]string{
	string(stages.PhaseNew):          "white",
	string(stages.PhaseReadingInput): "lightyellow",
	string(stages.PhasePostReading):  "khaki",
	string(stages.PhaseResultsReady): "palegreen",
	string(stages.PhaseFinished):     "palegreen",
	string(stages.PhaseFailed):       "salmon",
}

// ToDOT converts a stage graph to Graphviz DOT.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph stages {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [color=gray40];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n\n")

	sinks := map[int]bool{}
	for _, n := range g.Sinks() {
		sinks[n.ID] = true
	}
	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(n.ID), strings.Join(nodeAttrs(*n, sinks[n.ID], opts), ", "))
	}

	buf.WriteString("\n")
	for _, layer := range g.Layers() {
		if len(layer) < 2 {
			continue
		}
		ids := make([]string, len(layer))
		for i, id := range layer {
			ids[i] = nodeID(id)
		}
		fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(ids, "; "))
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %s -> %s;\n", nodeID(e.From), nodeID(e.To))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(stage int) string {
	return "s" + strconv.Itoa(stage)
}

func nodeAttrs(n dag.Node, sink bool, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", label(n, opts))}
	if fill, ok := phaseFill[metaString(n.Meta, stages.MetaPhase)]; ok && fill != "white" {
		attrs = append(attrs, "fillcolor="+fill)
	}
	if sink {
		attrs = append(attrs, "penwidth=2.5")
	}
	return attrs
}

func label(n dag.Node, opts Options) string {
	lines := []string{fmt.Sprintf("Stage %d", n.ID)}
	if p := metaString(n.Meta, stages.MetaProcessor); p != "" {
		lines = append(lines, p)
	}
	if ph := metaString(n.Meta, stages.MetaPhase); ph != "" {
		lines = append(lines, ph)
	}
	if p, ok := opts.Progress[n.ID]; ok {
		lines = append(lines, fmt.Sprintf("%.0f%%", p*100))
	}

	if opts.Detailed {
		for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
			if k == stages.MetaProcessor || k == stages.MetaPhase {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %v", k, n.Meta[k]))
		}
	}
	return strings.Join(lines, "\n")
}

func metaString(m dag.Metadata, key string) string {
	s, _ := m[key].(string)
	return s
}

// RenderSVG renders DOT source to SVG with a normalized root element.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's pt-sized root element with one sized
// in user units so the console can scale the diagram.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
