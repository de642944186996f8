package memstore

import (
	"fmt"
	"sort"
	"sync"

	"paperrag/internal/adapter/fs"
	"paperrag/internal/domain"
)

// MemoryStore keeps history in memory for runs that should leave no trace
// on disk.
type MemoryStore struct {
	mu     sync.RWMutex
	papers map[string]domain.PaperRecord
	runs   []domain.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers: make(map[string]domain.PaperRecord),
	}
}

func (s *MemoryStore) PutPaper(rec domain.PaperRecord) error {
	if rec.File == "" {
		return fmt.Errorf("paper record has no file name")
	}
	key := fs.SafeStem(rec.File)
	if key == "" {
		key = fs.Stem(rec.File)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers[key] = rec
	return nil
}

func (s *MemoryStore) GetPaper(stem string) (domain.PaperRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.papers[stem]
	if !ok {
		return domain.PaperRecord{}, fmt.Errorf("paper not found: %s", stem)
	}
	return rec, nil
}

func (s *MemoryStore) ListPapers() ([]domain.PaperRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.papers))
	for k := range s.papers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	papers := make([]domain.PaperRecord, len(keys))
	for i, k := range keys {
		papers[i] = s.papers[k]
	}
	return papers, nil
}

func (s *MemoryStore) PutRun(run domain.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run record has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *MemoryStore) ListRuns() ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := append([]domain.RunRecord(nil), s.runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}
