package stages

// AggregatedSortProgress summarizes sort-progress counters across workers.
type AggregatedSortProgress struct {
	// TotalMergingLevels maps each known level count to the number of
	// counters that reported it. Unknown level counts are not represented.
	TotalMergingLevels map[int]int `json:"totalMergingLevels"`

	// LevelToBatches maps a merge level to a histogram of the total batch
	// counts reported for that level.
	LevelToBatches map[int]map[int]int `json:"levelToBatches"`
}

// AggregateSortProgressCounters folds sort-progress snapshots into histograms.
//
// Every counter with a known TotalMergingLevels adds one to that value's
// bucket, and every (level, batches) entry of LevelToTotalBatches adds one to
// LevelToBatches[level][batches]. The result does not depend on the order of
// counters, never contains a zero count, and always has non-nil maps.
// The input is not modified.
func AggregateSortProgressCounters(counters []SortProgressCounter) AggregatedSortProgress {
	agg := AggregatedSortProgress{
		TotalMergingLevels: make(map[int]int),
		LevelToBatches:     make(map[int]map[int]int),
	}

	for _, c := range counters {
		if c.TotalMergingLevels != nil {
			agg.TotalMergingLevels[*c.TotalMergingLevels]++
		}
		for level, batches := range c.LevelToTotalBatches {
			hist := getOrInsert(agg.LevelToBatches, level, func() map[int]int { return make(map[int]int) })
			hist[batches]++
		}
	}
	return agg
}

// getOrInsert returns m[k], storing newValue() first if k is absent.
func getOrInsert[K comparable, V any](m map[K]V, k K, newValue func() V) V {
	v, ok := m[k]
	if !ok {
		v = newValue()
		m[k] = v
	}
	return v
}

// Workers returns the number of counters that reported the given level count.
func (a AggregatedSortProgress) Workers(levels int) int {
	return a.TotalMergingLevels[levels]
}

// Levels returns the distinct merge levels present in LevelToBatches, ascending.
func (a AggregatedSortProgress) Levels() []int {
	return sortedKeys(a.LevelToBatches)
}
