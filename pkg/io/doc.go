// Package io reads multi-stage query reports from JSON and writes derived
// results back out.
//
// # JSON Format
//
// A report has a list of stages and an optional counters object keyed by
// stage number, then worker number:
//
//	{
//	  "id": "query-123",
//	  "stages": [
//	    {"stageNumber": 0, "definition": {"input": [{"type": "table", "dataSource": "wiki"}], "processor": {"type": "scan"}}},
//	    {"stageNumber": 1, "definition": {"input": [{"type": "stage", "stage": 0}], "processor": {"type": "limit"}}}
//	  ],
//	  "counters": {
//	    "0": {"0": {"output": {"type": "channel", "rows": [120]}}}
//	  }
//	}
//
// Controller reports are often wrapped as {"multiStageQuery": {"payload":
// {"stages": ..., "counters": ...}}}; [ReadReport] unwraps that form too.
//
// # Import
//
// Use [ImportReport] for a file path or [ReadReport] for any io.Reader. Both
// reject malformed JSON and reports without stages with an INVALID_REPORT
// error. Stage inputs are not checked here; the graph builder in package
// stages reports dangling references when it needs them.
//
// # Export
//
// [WriteJSON] writes any result (graph infos, aggregates, partition rows)
// as indented JSON, the same way summaries are cached and served.
package io
