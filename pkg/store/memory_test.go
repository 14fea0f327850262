package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/stagetower/pkg/errors"
	"github.com/matzehuels/stagetower/pkg/stages"
)

func report(id string, n int) *stages.Report {
	rep := &stages.Report{ID: id}
	for i := range n {
		rep.Stages = append(rep.Stages, stages.Stage{
			StageNumber: i,
			Phase:       stages.PhaseFinished,
		})
	}
	return rep
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	id, err := s.Save(ctx, report("query-1", 2))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id != "query-1" {
		t.Errorf("Save id = %q, want query-1", id)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "query-1" || len(got.Stages) != 2 {
		t.Errorf("Get = %+v", got)
	}

	got.Stages[0].Phase = stages.PhaseFailed
	again, _ := s.Get(ctx, id)
	if again.Stages[0].Phase != stages.PhaseFinished {
		t.Error("mutating a returned report changed the stored one")
	}
}

func TestMemoryStoreAssignsID(t *testing.T) {
	s := NewMemoryStore()
	rep := report("", 1)

	id, err := s.Save(context.Background(), rep)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("assigned id %q is not a UUID: %v", id, err)
	}
	if rep.ID != "" {
		t.Error("Save mutated the caller's report")
	}
}

func TestMemoryStoreRejects(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name string
		rep  *stages.Report
		code errors.Code
	}{
		{"nil", nil, errors.ErrCodeInvalidReport},
		{"no stages", &stages.Report{ID: "x"}, errors.ErrCodeInvalidReport},
		{"bad id", report("../etc", 1), errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(ctx, tt.rep)
			if !errors.Is(err, tt.code) {
				t.Errorf("Save error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeReportNotFound) {
		t.Errorf("Get error = %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, errors.ErrCodeReportNotFound) {
		t.Errorf("Delete error = %v", err)
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Save(ctx, report(id, 1)); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[2] != "a" {
		t.Errorf("List order = %v, want [c b a]", ids)
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	infos, _ = s.List(ctx)
	if len(infos) != 2 {
		t.Errorf("List after Delete has %d entries, want 2", len(infos))
	}
}

func TestMemoryStoreEmptyList(t *testing.T) {
	infos, err := NewMemoryStore().List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if infos == nil || len(infos) != 0 {
		t.Errorf("List = %#v, want empty non-nil slice", infos)
	}
}

func TestNewMongoStoreRequiresURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), MongoOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}
