package pipeline

import (
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Analyze computes the summary of rep.
func Analyze(rep *stages.Report) (*Summary, error) {
	view := rep.View()
	infos, err := view.GraphInfos()
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		ReportID:        rep.ID,
		StageCount:      view.Len(),
		GraphInfos:      infos,
		SortProgress:    make(map[int]stages.AggregatedSortProgress),
		StageProgress:   make(map[int]float64, view.Len()),
		OverallProgress: view.OverallProgress(),
	}
	for _, st := range view.All() {
		n := st.StageNumber
		sum.StageProgress[n] = view.StageProgress(n)
		if counters := view.SortProgressCounters(n); len(counters) > 0 {
			sum.SortProgress[n] = stages.AggregateSortProgressCounters(counters)
		}
	}
	return sum, nil
}
