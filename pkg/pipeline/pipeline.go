// Package pipeline turns a report into the summaries and artifacts the CLI
// and the API serve.
//
// There are two steps, each usable on its own:
//
//  1. Analyze: graph infos, aggregated sort progress, stage and overall
//     progress, collected into a [Summary]
//  2. RenderGraph: the stage graph as DOT, SVG or JSON
//
// [Analyze] and [Render] are pure. A [Runner] wraps them with a cache keyed by
// the report's content hash, logging and observability hooks:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	summary, hit, err := runner.Analyze(ctx, report)
//	artifacts, hit, err := runner.RenderGraph(ctx, report, pipeline.RenderOptions{
//	    Formats: []string{pipeline.FormatSVG},
//	})
package pipeline

import (
	"slices"

	"github.com/matzehuels/stagetower/pkg/errors"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Output formats for RenderGraph.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// SupportedFormats lists the formats RenderGraph accepts, in display order.
var SupportedFormats = []string{FormatDOT, FormatSVG, FormatJSON}

// Summary is the analysis of one report. SortProgress only has entries for
// stages that reported sort progress.
type Summary struct {
	ReportID        string                                `json:"reportId,omitempty"`
	StageCount      int                                   `json:"stageCount"`
	GraphInfos      [][]stages.GraphInfo                  `json:"graphInfos"`
	SortProgress    map[int]stages.AggregatedSortProgress `json:"sortProgress"`
	StageProgress   map[int]float64                       `json:"stageProgress"`
	OverallProgress float64                               `json:"overallProgress"`
}

// RenderOptions controls RenderGraph.
type RenderOptions struct {
	Formats  []string
	Detailed bool
	// ShowProgress adds each stage's progress to its label.
	ShowProgress bool
	// Refresh skips the cache lookup but still writes the result.
	Refresh bool
}

// ValidateAndSetDefaults checks the formats and defaults to SVG.
func (o *RenderOptions) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	o.Formats = slices.Compact(slices.Clone(o.Formats))
	return errors.ValidateFormats(o.Formats, SupportedFormats)
}
