package stages

// Share of a sorting stage's progress spent reading input; the rest is sorting.
const readingShareWhenSorting = 0.5

// StageProgress estimates how far along a stage is, from 0 to 1.
//
// NEW stages are at 0 and RESULTS_READY or FINISHED stages at 1. While
// reading, progress is the input progress, halved for sorting stages so the
// merge sort gets the other half. After reading, sorting stages move from
// 0.5 to 1 with the merge; non-sorting stages are done. FAILED stages keep
// the reading estimate. Unknown stages report 0.
func (s *Stages) StageProgress(stage int) float64 {
	st, ok := s.Stage(stage)
	if !ok {
		return 0
	}

	switch st.Phase {
	case PhaseReadingInput, PhaseFailed:
		p := s.inputProgress(st)
		if st.Sorts() {
			p *= readingShareWhenSorting
		}
		return p
	case PhasePostReading:
		if !st.Sorts() {
			return 1
		}
		return readingShareWhenSorting + (1-readingShareWhenSorting)*s.sortProgress(st)
	case PhaseResultsReady, PhaseFinished:
		return 1
	default:
		return 0
	}
}

// OverallProgress is the mean progress of all stages, or 0 without stages.
func (s *Stages) OverallProgress() float64 {
	if len(s.stages) == 0 {
		return 0
	}
	var total float64
	for _, st := range s.stages {
		total += s.StageProgress(st.StageNumber)
	}
	return total / float64(len(s.stages))
}

// inputProgress averages progress over the stage's inputs. An input with
// known file totals reports files read; a stage input reports rows read
// against the rows its upstream stage produced.
func (s *Stages) inputProgress(st Stage) float64 {
	inputs := st.Definition.Input
	if len(inputs) == 0 {
		return 0
	}

	var sum float64
	for i, in := range inputs {
		read := s.ChannelTotals(st.StageNumber, InputChannel(i))
		switch {
		case read.TotalFiles > 0:
			sum += ratio(read.Files, read.TotalFiles)
		case in.Type == InputTypeStage:
			if up, ok := s.Stage(in.Stage); ok {
				sum += ratio(read.Rows, s.ChannelTotals(up.StageNumber, up.OutputChannel()).Rows)
			}
		}
	}
	return clamp01(sum / float64(len(inputs)))
}

// sortProgress averages each worker's merge progress: the mean, over levels,
// of merged batches over total batches. Workers that have not determined
// their level count yet contribute 0.
func (s *Stages) sortProgress(st Stage) float64 {
	counters := s.SortProgressCounters(st.StageNumber)
	if len(counters) == 0 {
		return 0
	}

	var sum float64
	for _, c := range counters {
		if c.TotalMergingLevels == nil || len(c.LevelToTotalBatches) == 0 {
			continue
		}
		var levels float64
		for level, total := range c.LevelToTotalBatches {
			levels += ratio(int64(c.LevelToMergedBatches[level]), int64(total))
		}
		sum += levels / float64(len(c.LevelToTotalBatches))
	}
	return clamp01(sum / float64(len(counters)))
}

func ratio(n, d int64) float64 {
	if d <= 0 {
		return 0
	}
	return clamp01(float64(n) / float64(d))
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
