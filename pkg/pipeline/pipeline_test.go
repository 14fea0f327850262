package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stagetower/pkg/cache"
	"github.com/matzehuels/stagetower/pkg/errors"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/stages"
)

const fixture = "../stages/testdata/report.json"

func loadReport(t *testing.T) *stages.Report {
	t.Helper()
	rep, err := reportio.ImportReport(fixture)
	if err != nil {
		t.Fatalf("import report: %v", err)
	}
	return rep
}

// mapCache is an in-memory cache.Cache that counts writes.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Close() error { return nil }

func quietLogger() *log.Logger {
	return log.NewWithOptions(&strings.Builder{}, log.Options{Level: log.ErrorLevel})
}

func TestAnalyze(t *testing.T) {
	sum, err := Analyze(loadReport(t))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if sum.ReportID != "query-wiki-rollup" || sum.StageCount != 4 {
		t.Errorf("ReportID, StageCount = %q, %d", sum.ReportID, sum.StageCount)
	}
	if len(sum.GraphInfos) != 4 {
		t.Fatalf("len(GraphInfos) = %d, want 4", len(sum.GraphInfos))
	}
	if got := sum.GraphInfos[3][0]; got.HasOut || len(got.FromLanes) != 1 {
		t.Errorf("GraphInfos[3] = %+v", got)
	}

	wantProgress := map[int]float64{0: 1, 1: 0.625, 2: 50.0 / 85, 3: 0}
	for stage, want := range wantProgress {
		if got := sum.StageProgress[stage]; math.Abs(got-want) > 1e-9 {
			t.Errorf("StageProgress[%d] = %v, want %v", stage, got, want)
		}
	}
	overall := (1 + 0.625 + 50.0/85) / 4
	if math.Abs(sum.OverallProgress-overall) > 1e-9 {
		t.Errorf("OverallProgress = %v, want %v", sum.OverallProgress, overall)
	}

	if len(sum.SortProgress) != 2 {
		t.Fatalf("SortProgress has %d stages, want 2", len(sum.SortProgress))
	}
	agg := sum.SortProgress[1]
	if agg.TotalMergingLevels[2] != 1 || len(agg.TotalMergingLevels) != 1 {
		t.Errorf("stage 1 TotalMergingLevels = %v", agg.TotalMergingLevels)
	}
	if agg.LevelToBatches[0][3] != 1 || agg.LevelToBatches[0][2] != 1 || agg.LevelToBatches[1][1] != 1 {
		t.Errorf("stage 1 LevelToBatches = %v", agg.LevelToBatches)
	}
}

func TestAnalyzeDanglingInput(t *testing.T) {
	rep := loadReport(t)
	rep.Stages[3].Definition.Input[0].Stage = 9

	_, err := Analyze(rep)
	if !errors.Is(err, errors.ErrCodeUnknownStage) {
		t.Errorf("err = %v, want UNKNOWN_STAGE", err)
	}
}

func TestRunnerAnalyzeCaches(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, nil, quietLogger())
	rep := loadReport(t)

	first, hit, err := r.Analyze(ctx, rep)
	if err != nil || hit {
		t.Fatalf("first Analyze: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.Analyze(ctx, rep)
	if err != nil || !hit {
		t.Fatalf("second Analyze: hit=%v err=%v", hit, err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("cached summary differs:\n%s\n%s", a, b)
	}

	rep.Stages[3].Phase = stages.PhaseFinished
	if _, hit, _ := r.Analyze(ctx, rep); hit {
		t.Error("changed report hit the cache")
	}
}

func TestRunnerAnalyzeCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, nil, quietLogger())
	rep := loadReport(t)

	hash, err := ReportHash(rep)
	if err != nil {
		t.Fatal(err)
	}
	c.data[r.Keyer.SummaryKey(hash)] = []byte("{not json")

	sum, hit, err := r.Analyze(ctx, rep)
	if err != nil || hit || sum == nil {
		t.Errorf("Analyze = %v, %v, %v; want fresh summary", sum, hit, err)
	}
}

func TestRunnerRenderGraph(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, cache.NewScopedKeyer(nil, "test:"), quietLogger())
	rep := loadReport(t)

	opts := RenderOptions{Formats: []string{FormatDOT, FormatJSON}}
	out, hit, err := r.RenderGraph(ctx, rep, opts)
	if err != nil || hit {
		t.Fatalf("RenderGraph: hit=%v err=%v", hit, err)
	}
	if !strings.Contains(string(out[FormatDOT]), "s2 -> s3;") {
		t.Errorf("dot artifact:\n%s", out[FormatDOT])
	}

	var doc graphJSON
	if err := json.Unmarshal(out[FormatJSON], &doc); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if len(doc.Nodes) != 4 || len(doc.Edges) != 3 {
		t.Errorf("json artifact has %d nodes, %d edges", len(doc.Nodes), len(doc.Edges))
	}
	if doc.Nodes[3].Depth != 3 {
		t.Errorf("stage 3 depth = %d, want 3", doc.Nodes[3].Depth)
	}
	if c.sets != 2 {
		t.Errorf("cache writes = %d, want 2", c.sets)
	}
	for key := range c.data {
		if !strings.HasPrefix(key, "test:") {
			t.Errorf("unscoped key %q", key)
		}
	}

	if _, hit, _ := r.RenderGraph(ctx, rep, opts); !hit {
		t.Error("second RenderGraph missed the cache")
	}
	opts.Refresh = true
	if _, hit, _ := r.RenderGraph(ctx, rep, opts); hit {
		t.Error("refresh hit the cache")
	}
	if _, hit, _ := r.RenderGraph(ctx, rep, RenderOptions{Formats: []string{FormatDOT}, Detailed: true}); hit {
		t.Error("detailed render reused plain artifact")
	}
}

func TestRenderOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		want    []string
		wantErr bool
	}{
		{"default", nil, []string{FormatSVG}, false},
		{"dedupe", []string{"dot", "dot", "json"}, []string{"dot", "json"}, false},
		{"unknown", []string{"png"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := RenderOptions{Formats: tt.formats}
			err := opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidFormat) {
					t.Errorf("err code = %s", errors.GetCode(err))
				}
				return
			}
			if strings.Join(opts.Formats, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Formats = %v, want %v", opts.Formats, tt.want)
			}
		})
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil {
		t.Errorf("NewRunner left nil fields: %+v", r)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
