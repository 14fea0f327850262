package stages

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/matzehuels/stagetower/pkg/errors"
)

// Stages is a read-only view over a report's stages and counters.
type Stages struct {
	stages   []Stage
	counters Counters
}

// NewStages wraps a stage list and its counters. Neither is copied; callers
// must not modify them while the view is in use.
func NewStages(stages []Stage, counters Counters) *Stages {
	return &Stages{stages: stages, counters: counters}
}

// View returns a [Stages] view over the report.
func (r *Report) View() *Stages {
	return NewStages(r.Stages, r.Counters)
}

// All returns the stages in plan order.
func (s *Stages) All() []Stage { return s.stages }

// Len returns the number of stages.
func (s *Stages) Len() int { return len(s.stages) }

// Stage returns the stage with the given number.
func (s *Stages) Stage(num int) (Stage, bool) {
	if num >= 0 && num < len(s.stages) && s.stages[num].StageNumber == num {
		return s.stages[num], true
	}
	for _, st := range s.stages {
		if st.StageNumber == num {
			return st, true
		}
	}
	return Stage{}, false
}

// GraphInfos builds the diagram annotations for all stages.
// See [BuildGraphInfos].
func (s *Stages) GraphInfos() ([][]GraphInfo, error) {
	return BuildGraphInfos(s.stages)
}

// WorkerCounters returns the counters of every worker of a stage, ordered by
// worker number.
func (s *Stages) WorkerCounters(stage int) []WorkerCounters {
	workers := s.counters[stage]
	out := make([]WorkerCounters, 0, len(workers))
	for _, w := range sortedKeys(workers) {
		out = append(out, workers[w])
	}
	return out
}

// SortProgressCounters returns the sort-progress snapshots of a stage,
// ordered by worker number. Workers without one are skipped.
func (s *Stages) SortProgressCounters(stage int) []SortProgressCounter {
	var out []SortProgressCounter
	for _, w := range s.WorkerCounters(stage) {
		if w.SortProgress != nil {
			out = append(out, *w.SortProgress)
		}
	}
	return out
}

// AggregatedSortProgress aggregates the sort-progress snapshots of a stage.
func (s *Stages) AggregatedSortProgress(stage int) AggregatedSortProgress {
	return AggregateSortProgressCounters(s.SortProgressCounters(stage))
}

// ChannelTotals sums a channel counter of a stage over all workers and partitions.
func (s *Stages) ChannelTotals(stage int, channel string) ChannelTotals {
	var t ChannelTotals
	for _, w := range s.WorkerCounters(stage) {
		if c, ok := w.Channels[channel]; ok {
			t = t.Add(c.Total())
		}
	}
	return t
}

// PartitionCounters holds the per-channel totals of one partition.
type PartitionCounters struct {
	Index    int
	Channels map[string]ChannelTotals
}

// ByPartitionCountersForStage returns one row per partition of a stage's
// input channels (DirectionIn) or output channel (DirectionOut), summed
// across workers. Rows cover partition 0 through the largest partition any
// worker reported; channels a stage never reported are omitted.
func (s *Stages) ByPartitionCountersForStage(stage int, dir Direction) ([]PartitionCounters, error) {
	st, ok := s.Stage(stage)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownStage, "stage %d not found", stage)
	}

	var channels []string
	switch dir {
	case DirectionIn:
		channels = st.InputChannels()
	case DirectionOut:
		channels = []string{st.OutputChannel()}
	default:
		return nil, errors.New(errors.ErrCodeInvalidDirection, "direction must be %q or %q, got %q", DirectionIn, DirectionOut, dir)
	}

	workers := s.WorkerCounters(stage)
	partitions := 0
	present := make(map[string]bool, len(channels))
	for _, w := range workers {
		for _, name := range channels {
			if c, ok := w.Channels[name]; ok {
				present[name] = true
				partitions = max(partitions, c.Partitions())
			}
		}
	}

	rows := make([]PartitionCounters, partitions)
	for i := range rows {
		rows[i] = PartitionCounters{Index: i, Channels: make(map[string]ChannelTotals, len(present))}
		for name := range present {
			var t ChannelTotals
			for _, w := range workers {
				if c, ok := w.Channels[name]; ok {
					t = t.Add(c.At(i))
				}
			}
			rows[i].Channels[name] = t
		}
	}
	return rows, nil
}

// ChannelNames returns the channel names of the row, sorted.
func (p PartitionCounters) ChannelNames() []string {
	return slices.Sorted(maps.Keys(p.Channels))
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// MarshalJSON flattens the row into {"index": i, "<channel>": {...}, ...}.
func (p PartitionCounters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Channels)+1)
	for name, t := range p.Channels {
		out[name] = t
	}
	out["index"] = p.Index
	return json.Marshal(out)
}
