package stages

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Phase is the lifecycle phase of a stage.
type Phase string

// Stage phases as reported by the controller.
const (
	PhaseNew          Phase = "NEW"
	PhaseReadingInput Phase = "READING_INPUT"
	PhasePostReading  Phase = "POST_READING"
	PhaseResultsReady Phase = "RESULTS_READY"
	PhaseFinished     Phase = "FINISHED"
	PhaseFailed       Phase = "FAILED"
)

// InputTypeStage marks an input that reads another stage's output.
const InputTypeStage = "stage"

// Shuffle spec type that repartitions without sorting.
const shuffleTypeMix = "mix"

// Report is a snapshot of a multi-stage query execution.
type Report struct {
	ID       string   `json:"id,omitempty"`
	Stages   []Stage  `json:"stages"`
	Counters Counters `json:"counters,omitempty"`
}

// Stage is one unit of a distributed query plan.
type Stage struct {
	StageNumber    int             `json:"stageNumber"`
	Definition     StageDefinition `json:"definition"`
	Phase          Phase           `json:"phase,omitempty"`
	WorkerCount    int             `json:"workerCount,omitempty"`
	PartitionCount int             `json:"partitionCount,omitempty"`
	StartTime      *time.Time      `json:"startTime,omitempty"`
	Duration       int64           `json:"duration,omitempty"` // milliseconds
}

// StageDefinition describes what a stage reads and how it processes it.
type StageDefinition struct {
	ID             string       `json:"id,omitempty"`
	Input          []InputSpec  `json:"input"`
	Processor      Processor    `json:"processor"`
	ShuffleSpec    *ShuffleSpec `json:"shuffleSpec,omitempty"`
	MaxWorkerCount int          `json:"maxWorkerCount,omitempty"`
}

// InputSpec is one declared input of a stage.
type InputSpec struct {
	Type       string `json:"type"`
	Stage      int    `json:"stage,omitempty"`
	DataSource string `json:"dataSource,omitempty"`
}

// Processor identifies the frame processor a stage runs.
type Processor struct {
	Type string `json:"type"`
}

// ShuffleSpec describes how a stage partitions its output.
type ShuffleSpec struct {
	Type           string     `json:"type"`
	ClusterBy      *ClusterBy `json:"clusterBy,omitempty"`
	PartitionCount int        `json:"partitions,omitempty"`
}

// ClusterBy lists the sort columns of a shuffle.
type ClusterBy struct {
	Columns []ClusterByColumn `json:"columns"`
}

// ClusterByColumn is one sort column.
type ClusterByColumn struct {
	ColumnName string `json:"columnName"`
	Order      string `json:"order,omitempty"`
}

// InputStageNumbers returns the stage numbers of the stage's "stage" inputs,
// in declaration order. Duplicates are preserved.
func (s Stage) InputStageNumbers() []int {
	var nums []int
	for _, in := range s.Definition.Input {
		if in.Type == InputTypeStage {
			nums = append(nums, in.Stage)
		}
	}
	return nums
}

// Sorts reports whether the stage sorts its output before shuffling it.
func (s Stage) Sorts() bool {
	spec := s.Definition.ShuffleSpec
	return spec != nil && spec.Type != shuffleTypeMix && spec.ClusterBy != nil && len(spec.ClusterBy.Columns) > 0
}

// OutputChannel returns the counter name carrying the stage's output:
// "shuffle" for stages with a shuffle spec, "output" otherwise.
func (s Stage) OutputChannel() string {
	if s.Definition.ShuffleSpec != nil {
		return ChannelShuffle
	}
	return ChannelOutput
}

// InputChannels returns the counter names of the stage's inputs (input0..inputN).
func (s Stage) InputChannels() []string {
	names := make([]string, len(s.Definition.Input))
	for i := range s.Definition.Input {
		names[i] = InputChannel(i)
	}
	return names
}

// Channel counter names.
const (
	ChannelOutput  = "output"
	ChannelShuffle = "shuffle"

	channelInputPrefix = "input"
)

// InputChannel returns the counter name of the i-th input.
func InputChannel(i int) string {
	return fmt.Sprintf("%s%d", channelInputPrefix, i)
}

// Counters holds every counter of a report, keyed by stage number, then worker number.
type Counters map[int]map[int]WorkerCounters

// Counter type tags used on the wire.
const (
	counterTypeChannel      = "channel"
	counterTypeSortProgress = "sortProgress"
)

// WorkerCounters is the set of counters one worker reported for one stage.
type WorkerCounters struct {
	Channels     map[string]ChannelCounter
	SortProgress *SortProgressCounter
}

// UnmarshalJSON decodes a worker's counter object, dispatching on each
// counter's "type". Counter types this package does not model are ignored.
func (w *WorkerCounters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	w.Channels = make(map[string]ChannelCounter)
	w.SortProgress = nil
	for name, msg := range raw {
		var tagged struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &tagged); err != nil {
			return fmt.Errorf("counter %s: %w", name, err)
		}
		switch tagged.Type {
		case counterTypeChannel:
			var c ChannelCounter
			if err := json.Unmarshal(msg, &c); err != nil {
				return fmt.Errorf("counter %s: %w", name, err)
			}
			w.Channels[name] = c
		case counterTypeSortProgress:
			var c SortProgressCounter
			if err := json.Unmarshal(msg, &c); err != nil {
				return fmt.Errorf("counter %s: %w", name, err)
			}
			w.SortProgress = &c
		}
	}
	return nil
}

// MarshalJSON encodes the counters back into the tagged wire shape.
func (w WorkerCounters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(w.Channels)+1)
	for name, c := range w.Channels {
		out[name] = struct {
			Type string `json:"type"`
			ChannelCounter
		}{counterTypeChannel, c}
	}
	if w.SortProgress != nil {
		out[counterTypeSortProgress] = w.SortProgress
	}
	return json.Marshal(out)
}

// ChannelCounter holds per-partition totals for one data channel.
// Each slice is indexed by partition number and may be shorter than the
// partition count when trailing partitions saw no data.
type ChannelCounter struct {
	Rows       []int64 `json:"rows,omitempty"`
	Bytes      []int64 `json:"bytes,omitempty"`
	Frames     []int64 `json:"frames,omitempty"`
	Files      []int64 `json:"files,omitempty"`
	TotalFiles []int64 `json:"totalFiles,omitempty"`
}

// Partitions returns the number of partitions the counter covers.
func (c ChannelCounter) Partitions() int {
	return max(len(c.Rows), len(c.Bytes), len(c.Frames), len(c.Files), len(c.TotalFiles))
}

// At returns the totals for partition i, with zeros where the counter has no entry.
func (c ChannelCounter) At(i int) ChannelTotals {
	return ChannelTotals{
		Rows:       at(c.Rows, i),
		Bytes:      at(c.Bytes, i),
		Frames:     at(c.Frames, i),
		Files:      at(c.Files, i),
		TotalFiles: at(c.TotalFiles, i),
	}
}

// Total sums the counter across all partitions.
func (c ChannelCounter) Total() ChannelTotals {
	var t ChannelTotals
	for i := range c.Partitions() {
		t = t.Add(c.At(i))
	}
	return t
}

func at(s []int64, i int) int64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// ChannelTotals is a summed view of a channel counter.
type ChannelTotals struct {
	Rows       int64 `json:"rows"`
	Bytes      int64 `json:"bytes"`
	Frames     int64 `json:"frames"`
	Files      int64 `json:"files"`
	TotalFiles int64 `json:"totalFiles"`
}

// Add returns the field-wise sum of t and o.
func (t ChannelTotals) Add(o ChannelTotals) ChannelTotals {
	return ChannelTotals{
		Rows:       t.Rows + o.Rows,
		Bytes:      t.Bytes + o.Bytes,
		Frames:     t.Frames + o.Frames,
		Files:      t.Files + o.Files,
		TotalFiles: t.TotalFiles + o.TotalFiles,
	}
}

// IsZero reports whether every field is zero.
func (t ChannelTotals) IsZero() bool { return t == ChannelTotals{} }

// SortProgressCounter is a snapshot of a worker's external merge sort.
type SortProgressCounter struct {
	// TotalMergingLevels is the number of merge levels the sort will use,
	// or nil while the sort has not determined it yet.
	TotalMergingLevels           *int
	LevelToTotalBatches          map[int]int
	LevelToMergedBatches         map[int]int
	TotalMergersForUltimateLevel int
}

// unknownMergingLevels is the wire value for a nil TotalMergingLevels.
const unknownMergingLevels = -1

type sortProgressWire struct {
	Type                         string      `json:"type,omitempty"`
	TotalMergingLevels           *int        `json:"totalMergingLevels,omitempty"`
	LevelToTotalBatches          map[int]int `json:"levelToTotalBatches,omitempty"`
	LevelToMergedBatches         map[int]int `json:"levelToMergedBatches,omitempty"`
	TotalMergersForUltimateLevel int         `json:"totalMergersForUltimateLevel"`
}

// UnmarshalJSON decodes the wire form, mapping a negative or missing
// totalMergingLevels to nil.
func (c *SortProgressCounter) UnmarshalJSON(data []byte) error {
	var w sortProgressWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.TotalMergingLevels != nil && *w.TotalMergingLevels < 0 {
		w.TotalMergingLevels = nil
	}
	*c = SortProgressCounter{
		TotalMergingLevels:           w.TotalMergingLevels,
		LevelToTotalBatches:          w.LevelToTotalBatches,
		LevelToMergedBatches:         w.LevelToMergedBatches,
		TotalMergersForUltimateLevel: w.TotalMergersForUltimateLevel,
	}
	return nil
}

// MarshalJSON encodes the wire form, writing an unknown level count as -1.
func (c SortProgressCounter) MarshalJSON() ([]byte, error) {
	levels := unknownMergingLevels
	if c.TotalMergingLevels != nil {
		levels = *c.TotalMergingLevels
	}
	return json.Marshal(sortProgressWire{
		Type:                         counterTypeSortProgress,
		TotalMergingLevels:           &levels,
		LevelToTotalBatches:          c.LevelToTotalBatches,
		LevelToMergedBatches:         c.LevelToMergedBatches,
		TotalMergersForUltimateLevel: c.TotalMergersForUltimateLevel,
	})
}

// MergingLevels returns a pointer to n, for building counters with a known level count.
func MergingLevels(n int) *int { return &n }

// Direction selects which side of a stage per-partition counters describe.
type Direction string

// Counter directions.
const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// ParseDirection parses "in" or "out", case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains([]Direction{DirectionIn, DirectionOut}, d) {
		return d, true
	}
	return "", false
}
