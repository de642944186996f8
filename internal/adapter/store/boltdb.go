package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
	"paperrag/internal/adapter/fs"
	"paperrag/internal/domain"
)

var (
	bucketPapers = []byte("papers")
	bucketRuns   = []byte("runs")
	bucketMeta   = []byte("meta")
)

// ErrNotFound is returned when a paper has no history entry.
var ErrNotFound = errors.New("not found")

// BoltStore keeps processed papers and run summaries in a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPapers, bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// paperKey derives the lookup key from a file name. It is the same safe stem
// that names the paper's output files, or the raw stem when nothing safe is left.
func paperKey(file string) string {
	if key := fs.SafeStem(file); key != "" {
		return key
	}
	return fs.Stem(file)
}

// PutPaper stores rec, replacing any earlier record for the same file.
func (s *BoltStore) PutPaper(rec domain.PaperRecord) error {
	if rec.File == "" {
		return errors.New("paper record has no file name")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPapers).Put([]byte(paperKey(rec.File)), data)
	})
}

func (s *BoltStore) GetPaper(stem string) (domain.PaperRecord, error) {
	var rec domain.PaperRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPapers).Get([]byte(stem))
		if data == nil {
			return fmt.Errorf("paper %s: %w", stem, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// ListPapers returns every stored paper ordered by stem.
func (s *BoltStore) ListPapers() ([]domain.PaperRecord, error) {
	var papers []domain.PaperRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPapers).ForEach(func(k, v []byte) error {
			var rec domain.PaperRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode paper %s: %w", k, err)
			}
			papers = append(papers, rec)
			return nil
		})
	})
	return papers, err
}

// runKey sorts runs chronologically under bbolt's byte ordering.
func runKey(run domain.RunRecord) []byte {
	return []byte(run.StartedAt.UTC().Format("20060102T150405.000000000") + "_" + run.ID)
}

func (s *BoltStore) PutRun(run domain.RunRecord) error {
	if run.ID == "" {
		return errors.New("run record has no id")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(runKey(run), data)
	})
}

// ListRuns returns all runs, oldest first.
func (s *BoltStore) ListRuns() ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run domain.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
