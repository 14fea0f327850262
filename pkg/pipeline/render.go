package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/render/nodelink"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// graphJSON is the JSON artifact: the stage graph in node/edge form, which
// the console lays out itself.
type graphJSON struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

type graphNode struct {
	Stage     int     `json:"stage"`
	Processor string  `json:"processor"`
	Phase     string  `json:"phase"`
	Depth     int     `json:"depth"`
	Progress  float64 `json:"progress"`
}

type graphEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Render produces the requested artifacts for rep. opts must already be
// validated.
func Render(ctx context.Context, rep *stages.Report, opts RenderOptions) (map[string][]byte, error) {
	g, err := stages.BuildGraph(rep.Stages)
	if err != nil {
		return nil, err
	}
	view := rep.View()

	var progress map[int]float64
	if opts.ShowProgress {
		progress = make(map[int]float64, view.Len())
		for _, st := range view.All() {
			progress[st.StageNumber] = view.StageProgress(st.StageNumber)
		}
	}
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed, Progress: progress})

	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			out[format] = []byte(dot)
		case FormatSVG:
			svg, err := nodelink.RenderSVG(ctx, dot)
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			out[format] = svg
		case FormatJSON:
			depths := g.Depths()
			doc := graphJSON{Nodes: []graphNode{}, Edges: []graphEdge{}}
			for _, st := range view.All() {
				doc.Nodes = append(doc.Nodes, graphNode{
					Stage:     st.StageNumber,
					Processor: st.Definition.Processor.Type,
					Phase:     string(st.Phase),
					Depth:     depths[st.StageNumber],
					Progress:  view.StageProgress(st.StageNumber),
				})
			}
			for _, e := range g.Edges() {
				doc.Edges = append(doc.Edges, graphEdge{From: e.From, To: e.To})
			}
			var buf bytes.Buffer
			if err := reportio.WriteJSON(&buf, doc); err != nil {
				return nil, err
			}
			out[format] = buf.Bytes()
		}
	}
	return out, nil
}

func marshalSummary(s *Summary) ([]byte, error) {
	return json.Marshal(s)
}

func unmarshalSummary(data []byte) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
