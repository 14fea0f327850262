package stages

import (
	"maps"
	"reflect"
	"testing"
)

func TestAggregateSortProgressCounters(t *testing.T) {
	got := AggregateSortProgressCounters([]SortProgressCounter{
		{
			TotalMergingLevels:           MergingLevels(2),
			LevelToTotalBatches:          map[int]int{0: 3, 1: 4, 2: 4},
			LevelToMergedBatches:         map[int]int{0: 3, 1: 4, 2: 4},
			TotalMergersForUltimateLevel: 1,
		},
		{
			TotalMergingLevels:           nil,
			LevelToTotalBatches:          map[int]int{0: 2, 1: 4, 2: 6, 3: 5},
			LevelToMergedBatches:         map[int]int{0: 2, 1: 4, 2: 6, 3: 5},
			TotalMergersForUltimateLevel: 1,
		},
	})

	want := AggregatedSortProgress{
		TotalMergingLevels: map[int]int{2: 1},
		LevelToBatches: map[int]map[int]int{
			0: {2: 1, 3: 1},
			1: {4: 2},
			2: {4: 1, 6: 1},
			3: {5: 1},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateSortProgressCounters() = %+v, want %+v", got, want)
	}
}

func TestAggregateSortProgressCountersCases(t *testing.T) {
	tests := []struct {
		name       string
		counters   []SortProgressCounter
		wantLevels map[int]int
		wantBatch  map[int]map[int]int
	}{
		{
			name:       "empty",
			counters:   nil,
			wantLevels: map[int]int{},
			wantBatch:  map[int]map[int]int{},
		},
		{
			name: "unknown level contributes nothing",
			counters: []SortProgressCounter{
				{TotalMergingLevels: MergingLevels(2)},
				{TotalMergingLevels: nil},
			},
			wantLevels: map[int]int{2: 1},
			wantBatch:  map[int]map[int]int{},
		},
		{
			name: "same level batches from two workers",
			counters: []SortProgressCounter{
				{LevelToTotalBatches: map[int]int{0: 3}},
				{LevelToTotalBatches: map[int]int{0: 2}},
			},
			wantLevels: map[int]int{},
			wantBatch:  map[int]map[int]int{0: {3: 1, 2: 1}},
		},
		{
			name: "zero levels is a known value",
			counters: []SortProgressCounter{
				{TotalMergingLevels: MergingLevels(0)},
				{TotalMergingLevels: MergingLevels(0)},
			},
			wantLevels: map[int]int{0: 2},
			wantBatch:  map[int]map[int]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateSortProgressCounters(tt.counters)
			if got.TotalMergingLevels == nil || got.LevelToBatches == nil {
				t.Fatal("aggregate maps must be non-nil")
			}
			if !reflect.DeepEqual(got.TotalMergingLevels, tt.wantLevels) {
				t.Errorf("TotalMergingLevels = %v, want %v", got.TotalMergingLevels, tt.wantLevels)
			}
			if !reflect.DeepEqual(got.LevelToBatches, tt.wantBatch) {
				t.Errorf("LevelToBatches = %v, want %v", got.LevelToBatches, tt.wantBatch)
			}
		})
	}
}

func TestAggregateSortProgressCountersOrderIndependent(t *testing.T) {
	counters := []SortProgressCounter{
		{TotalMergingLevels: MergingLevels(3), LevelToTotalBatches: map[int]int{0: 8, 1: 2, 2: 1}},
		{TotalMergingLevels: nil, LevelToTotalBatches: map[int]int{0: 5}},
		{TotalMergingLevels: MergingLevels(2), LevelToTotalBatches: map[int]int{0: 8, 1: 1}},
		{TotalMergingLevels: MergingLevels(3), LevelToTotalBatches: map[int]int{0: 7, 1: 2, 2: 1}},
	}
	want := AggregateSortProgressCounters(counters)

	for _, perm := range permutations(len(counters)) {
		shuffled := make([]SortProgressCounter, len(counters))
		for i, j := range perm {
			shuffled[i] = counters[j]
		}
		if got := AggregateSortProgressCounters(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %v: got %+v, want %+v", perm, got, want)
		}
	}

	for level, n := range want.TotalMergingLevels {
		if n <= 0 {
			t.Errorf("TotalMergingLevels[%d] = %d, want > 0", level, n)
		}
	}
	for level, hist := range want.LevelToBatches {
		for batches, n := range hist {
			if n <= 0 {
				t.Errorf("LevelToBatches[%d][%d] = %d, want > 0", level, batches, n)
			}
		}
	}
	if _, ok := want.TotalMergingLevels[unknownMergingLevels]; ok {
		t.Error("unknown level sentinel must not appear as a key")
	}
}

func TestAggregateSortProgressCountersDoesNotMutate(t *testing.T) {
	batches := map[int]int{0: 3, 1: 1}
	counters := []SortProgressCounter{{TotalMergingLevels: MergingLevels(1), LevelToTotalBatches: batches}}
	before := maps.Clone(batches)

	agg := AggregateSortProgressCounters(counters)
	agg.LevelToBatches[0][3] = 99

	if !maps.Equal(batches, before) {
		t.Errorf("input mutated: %v, want %v", batches, before)
	}
	if *counters[0].TotalMergingLevels != 1 {
		t.Errorf("TotalMergingLevels mutated: %d", *counters[0].TotalMergingLevels)
	}
}

func TestAggregatedSortProgressAccessors(t *testing.T) {
	agg := AggregatedSortProgress{
		TotalMergingLevels: map[int]int{2: 3},
		LevelToBatches:     map[int]map[int]int{2: {1: 1}, 0: {4: 1}},
	}
	if agg.Workers(2) != 3 || agg.Workers(5) != 0 {
		t.Errorf("Workers() = %d/%d, want 3/0", agg.Workers(2), agg.Workers(5))
	}
	if got := agg.Levels(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Levels() = %v, want [0 2]", got)
	}
}

// permutations returns every ordering of 0..n-1.
func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}
