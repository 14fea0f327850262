// Package pkg provides the libraries behind stagetower, an inspector for
// multi-stage query execution reports.
//
// # Overview
//
// A report lists the stages of a distributed query plan, the inputs each
// stage reads, its phase, and the per-worker counters it emitted. The pkg
// directory turns that report into derived views:
//
//  1. [stages] - Report model, sort-progress aggregation, graph lane
//     annotation, partition counters and progress estimates
//  2. [dag] - Directed graph over stage numbers with layering
//  3. [pipeline] - Orchestration (analyze, render) with caching
//  4. [render/nodelink] - DOT and SVG stage diagrams
//  5. [cache] and [store] - Infrastructure for results and uploaded reports
//
// # Architecture
//
//	Report JSON
//	     ↓
//	[io] package (decode, validate)
//	     ↓
//	[stages] package (aggregates, graph infos, progress)
//	     ↓
//	[pipeline] package (summary, cached artifacts)
//	     ↓
//	DOT/SVG/JSON output
//
// # Quick Start
//
//	rep, err := io.ImportReport("report.json")
//	if err != nil {
//	    return err
//	}
//	view := rep.View()
//	infos, err := view.GraphInfos()
//	if err != nil {
//	    return err
//	}
//	hist := view.AggregatedSortProgress(1)
//	fmt.Println(len(infos), hist.TotalMergingLevels, view.OverallProgress())
//
// For cached analysis, use a [pipeline.Runner]:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	summary, hit, err := runner.Analyze(ctx, rep)
//
// # Error Handling
//
// Library errors carry a code from [errors] (INVALID_REPORT, UNKNOWN_STAGE,
// and so on). The HTTP server maps codes to status codes and the CLI prints
// [errors.UserMessage].
//
// [stages]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/stages
// [dag]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/dag
// [io]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/pipeline#Runner
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/store
// [errors]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/errors
// [errors.UserMessage]: https://pkg.go.dev/github.com/matzehuels/stagetower/pkg/errors#UserMessage
package pkg
