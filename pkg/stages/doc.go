// Package stages models the stages of a multi-stage query report and derives
// the summaries a console needs to display them.
//
// # Overview
//
// A [Report] lists stages in plan order. Each [Stage] declares its inputs;
// inputs of type "stage" reference an earlier stage's output by stage number.
// Workers running a stage emit counters: per-partition channel counters
// (input0..inputN, output, shuffle) and, for sorting stages, a
// [SortProgressCounter] snapshot describing the external merge sort.
//
// Two pure computations sit at the center of the package:
//
//   - [AggregateSortProgressCounters] folds sort-progress snapshots into
//     histograms: how many workers reported each total merging level, and for
//     each level how many reported each batch count.
//   - [BuildGraphInfos] annotates each stage with the lanes it reads from,
//     whether anything reads its output, and its stage number, which is
//     everything a renderer needs to draw the stage diagram row by row.
//
// [Stages] wraps a report and adds the derived views built on those two:
// per-partition counters, stage progress, and overall progress.
//
// # Unknown merging levels
//
// Sort-progress counters report -1 for total merging levels until the sort
// has decided how many levels it needs. The decoder turns that into a nil
// [SortProgressCounter.TotalMergingLevels], so callers check for nil instead
// of remembering the magic number. Encoding writes nil back as -1.
//
// # Concurrency
//
// Every function in this package is synchronous and never mutates its
// arguments. Callers that poll reports concurrently must hand in a snapshot.
package stages
