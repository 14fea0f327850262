package stages

import (
	"encoding/json"
	"os"
	"testing"
)

// loadReport decodes testdata/report.json: a four-stage linear plan
// (scan -> groupByPreShuffle -> groupByPostShuffle -> limit) caught while
// stage 1 is merging and stage 2 is reading.
func loadReport(t *testing.T) *Report {
	t.Helper()
	data, err := os.ReadFile("testdata/report.json")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return &r
}

// stage builds a stage reading from the given stage numbers.
func stage(num int, inputs ...int) Stage {
	s := Stage{StageNumber: num, Definition: StageDefinition{Processor: Processor{Type: "scan"}}}
	for _, in := range inputs {
		s.Definition.Input = append(s.Definition.Input, InputSpec{Type: InputTypeStage, Stage: in})
	}
	return s
}
