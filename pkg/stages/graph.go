package stages

import (
	stderrors "errors"

	"github.com/matzehuels/stagetower/pkg/dag"
	"github.com/matzehuels/stagetower/pkg/errors"
)

// GraphInfoType tags the kind of diagram annotation.
type GraphInfoType string

// GraphInfoTypeStage marks an annotation for a stage node.
const GraphInfoTypeStage GraphInfoType = "stage"

// GraphInfo annotates one stage for row-by-row diagram layout.
type GraphInfo struct {
	StageNumber int           `json:"stageNumber"`
	FromLanes   []int         `json:"fromLanes"` // lanes this stage reads from, local to the stage
	HasOut      bool          `json:"hasOut"`    // some stage reads this stage's output
	Type        GraphInfoType `json:"type"`
}

// BuildGraphInfos annotates every stage for diagram layout. The result has
// one lane group per stage, in input order, each holding that stage's
// GraphInfo.
//
// FromLanes numbers the distinct input stages of a stage 0..k-1 in the order
// they are first declared, and lists the lane of each declared input. A
// stage that reads the same input twice therefore reads one lane twice, and a
// stage without stage inputs has an empty, non-nil FromLanes.
//
// Stage numbers must equal their position in stages. An input referencing a
// stage that is not in the list fails with UNKNOWN_STAGE; a cycle of inputs
// fails with INVALID_REPORT.
func BuildGraphInfos(stages []Stage) ([][]GraphInfo, error) {
	g, err := BuildGraph(stages)
	if err != nil {
		return nil, err
	}

	infos := make([][]GraphInfo, len(stages))
	for i, s := range stages {
		infos[i] = []GraphInfo{{
			StageNumber: s.StageNumber,
			FromLanes:   fromLanes(s.InputStageNumbers()),
			HasOut:      g.OutDegree(s.StageNumber) > 0,
			Type:        GraphInfoTypeStage,
		}}
	}
	return infos, nil
}

func fromLanes(inputs []int) []int {
	lanes := make([]int, 0, len(inputs))
	laneOf := make(map[int]int, len(inputs))
	for _, in := range inputs {
		lane, ok := laneOf[in]
		if !ok {
			lane = len(laneOf)
			laneOf[in] = lane
		}
		lanes = append(lanes, lane)
	}
	return lanes
}

// Node metadata keys set by BuildGraph.
const (
	MetaProcessor = "processor"
	MetaPhase     = "phase"
	MetaWorkers   = "workers"
	MetaSorts     = "sorts"
)

// BuildGraph converts the stage list into a [dag.DAG] with an edge from every
// input stage to the stage that reads it. It applies the same checks as
// [BuildGraphInfos].
func BuildGraph(stages []Stage) (*dag.DAG, error) {
	g := dag.New(nil)
	for i, s := range stages {
		if s.StageNumber != i {
			return nil, errors.New(errors.ErrCodeInvalidReport, "stage at position %d has stage number %d", i, s.StageNumber)
		}
		err := g.AddNode(dag.Node{ID: s.StageNumber, Meta: dag.Metadata{
			MetaProcessor: s.Definition.Processor.Type,
			MetaPhase:     string(s.Phase),
			MetaWorkers:   s.WorkerCount,
			MetaSorts:     s.Sorts(),
		}})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidReport, err, "stage %d", s.StageNumber)
		}
	}

	for _, s := range stages {
		for _, in := range s.InputStageNumbers() {
			err := g.AddEdge(dag.Edge{From: in, To: s.StageNumber})
			if stderrors.Is(err, dag.ErrUnknownSourceNode) {
				return nil, errors.New(errors.ErrCodeUnknownStage, "stage %d reads from stage %d, which is not in the plan", s.StageNumber, in)
			}
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidReport, err, "stage %d input %d", s.StageNumber, in)
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidReport, err, "stage inputs")
	}
	return g, nil
}
