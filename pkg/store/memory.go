package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	info Info
	data []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, rep *stages.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, data, err := prepare(rep)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{
		info: Info{ID: id, StageCount: len(rep.Stages), SavedAt: s.now()},
		data: data,
	}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*stages.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return reportio.DecodeReport(e.data)
}

func (s *MemoryStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	infos := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}
	s.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return notFound(id)
	}
	delete(s.entries, id)
	return nil
}

// Close does nothing for MemoryStore.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
