package stages

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matzehuels/stagetower/pkg/errors"
)

func TestBuildGraphInfosLinearChain(t *testing.T) {
	r := loadReport(t)

	got, err := r.View().GraphInfos()
	if err != nil {
		t.Fatalf("GraphInfos() error: %v", err)
	}

	want := [][]GraphInfo{
		{{StageNumber: 0, FromLanes: []int{}, HasOut: true, Type: GraphInfoTypeStage}},
		{{StageNumber: 1, FromLanes: []int{0}, HasOut: true, Type: GraphInfoTypeStage}},
		{{StageNumber: 2, FromLanes: []int{0}, HasOut: true, Type: GraphInfoTypeStage}},
		{{StageNumber: 3, FromLanes: []int{0}, HasOut: false, Type: GraphInfoTypeStage}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GraphInfos() = %+v, want %+v", got, want)
	}
}

func TestBuildGraphInfosLanes(t *testing.T) {
	tests := []struct {
		name      string
		stages    []Stage
		wantLanes [][]int
		wantOut   []bool
	}{
		{
			name:      "empty",
			stages:    nil,
			wantLanes: [][]int{},
			wantOut:   []bool{},
		},
		{
			name:      "single stage",
			stages:    []Stage{stage(0)},
			wantLanes: [][]int{{}},
			wantOut:   []bool{false},
		},
		{
			name:      "lanes are local to the stage",
			stages:    []Stage{stage(0), stage(1), stage(2), stage(3), stage(4, 3, 1)},
			wantLanes: [][]int{{}, {}, {}, {}, {0, 1}},
			wantOut:   []bool{false, true, false, true, false},
		},
		{
			name:      "repeated input reuses its lane",
			stages:    []Stage{stage(0), stage(1), stage(2, 1, 0, 1)},
			wantLanes: [][]int{{}, {}, {0, 1, 0}},
			wantOut:   []bool{true, true, false},
		},
		{
			name:      "fan out",
			stages:    []Stage{stage(0), stage(1, 0), stage(2, 0), stage(3, 1, 2)},
			wantLanes: [][]int{{}, {0}, {0}, {0, 1}},
			wantOut:   []bool{true, true, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildGraphInfos(tt.stages)
			if err != nil {
				t.Fatalf("BuildGraphInfos() error: %v", err)
			}
			if len(got) != len(tt.stages) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.stages))
			}
			for i, group := range got {
				if len(group) != 1 {
					t.Fatalf("group %d has %d entries, want 1", i, len(group))
				}
				info := group[0]
				if info.StageNumber != tt.stages[i].StageNumber {
					t.Errorf("group %d stageNumber = %d, want %d", i, info.StageNumber, tt.stages[i].StageNumber)
				}
				if info.FromLanes == nil || !reflect.DeepEqual(info.FromLanes, tt.wantLanes[i]) {
					t.Errorf("stage %d fromLanes = %#v, want %v", i, info.FromLanes, tt.wantLanes[i])
				}
				if info.HasOut != tt.wantOut[i] {
					t.Errorf("stage %d hasOut = %v, want %v", i, info.HasOut, tt.wantOut[i])
				}
				if info.Type != GraphInfoTypeStage {
					t.Errorf("stage %d type = %q", i, info.Type)
				}
			}
		})
	}
}

func TestBuildGraphInfosIgnoresNonStageInputs(t *testing.T) {
	s := stage(1, 0)
	s.Definition.Input = append([]InputSpec{{Type: "table", DataSource: "wikipedia"}}, s.Definition.Input...)

	got, err := BuildGraphInfos([]Stage{stage(0), s})
	if err != nil {
		t.Fatalf("BuildGraphInfos() error: %v", err)
	}
	if !reflect.DeepEqual(got[1][0].FromLanes, []int{0}) {
		t.Errorf("fromLanes = %v, want [0]", got[1][0].FromLanes)
	}
}

func TestBuildGraphInfosErrors(t *testing.T) {
	tests := []struct {
		name     string
		stages   []Stage
		wantCode errors.Code
	}{
		{
			name:     "dangling input",
			stages:   []Stage{stage(0), stage(1, 7)},
			wantCode: errors.ErrCodeUnknownStage,
		},
		{
			name:     "stage number is not its position",
			stages:   []Stage{stage(0), stage(2, 0)},
			wantCode: errors.ErrCodeInvalidReport,
		},
		{
			name:     "duplicate stage number",
			stages:   []Stage{stage(0), stage(0)},
			wantCode: errors.ErrCodeInvalidReport,
		},
		{
			name:     "cycle",
			stages:   []Stage{stage(0, 1), stage(1, 0)},
			wantCode: errors.ErrCodeInvalidReport,
		},
		{
			name:     "reads itself",
			stages:   []Stage{stage(0, 0)},
			wantCode: errors.ErrCodeInvalidReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildGraphInfos(tt.stages)
			if err == nil {
				t.Fatalf("BuildGraphInfos() = %+v, want error", got)
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error code = %q, want %q (%v)", errors.GetCode(err), tt.wantCode, err)
			}
		})
	}
}

func TestGraphInfoJSON(t *testing.T) {
	infos, err := BuildGraphInfos([]Stage{stage(0), stage(1, 0)})
	if err != nil {
		t.Fatalf("BuildGraphInfos() error: %v", err)
	}
	data, err := json.Marshal(infos)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[[{"stageNumber":0,"fromLanes":[],"hasOut":true,"type":"stage"}],[{"stageNumber":1,"fromLanes":[0],"hasOut":false,"type":"stage"}]]`
	if string(data) != want {
		t.Errorf("json = %s\nwant  %s", data, want)
	}
}

func TestBuildGraph(t *testing.T) {
	g, err := BuildGraph(loadReport(t).Stages)
	if err != nil {
		t.Fatalf("BuildGraph() error: %v", err)
	}
	if g.NodeCount() != 4 || g.EdgeCount() != 3 {
		t.Errorf("nodes/edges = %d/%d, want 4/3", g.NodeCount(), g.EdgeCount())
	}
	n, _ := g.Node(1)
	if n.Meta[MetaProcessor] != "groupByPreShuffle" {
		t.Errorf("processor = %v", n.Meta[MetaProcessor])
	}
	if n.Meta[MetaSorts] != true {
		t.Errorf("sorts = %v, want true", n.Meta[MetaSorts])
	}
}
