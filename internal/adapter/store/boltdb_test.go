package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"paperrag/config"
	"paperrag/internal/domain"
	"paperrag/internal/port"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_PaperKeyIsSafeStem(t *testing.T) {
	s := openStore(t)

	rec := domain.PaperRecord{File: "Attention Is All You Need.pdf", Title: "Attention Is All You Need"}
	if err := s.PutPaper(rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPaper("attention_is_all_you_need")
	if err != nil {
		t.Fatalf("lookup by output stem: %v", err)
	}
	if got.File != rec.File {
		t.Errorf("expected %q, got %q", rec.File, got.File)
	}
	if _, err := s.GetPaper("Attention Is All You Need"); !errors.Is(err, ErrNotFound) {
		t.Errorf("raw base name should not be a key, got %v", err)
	}
}

func TestBoltStore_Papers(t *testing.T) {
	s := openStore(t)

	recs := []domain.PaperRecord{
		{File: "vaswani.pdf", Title: "Attention Is All You Need", QueryUsed: "q", Outputs: map[string]string{"summary_md": "a.md"}},
		{File: "bert.pdf", Title: "BERT"},
	}
	for _, rec := range recs {
		if err := s.PutPaper(rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetPaper("vaswani")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Attention Is All You Need" || got.Outputs["summary_md"] != "a.md" {
		t.Errorf("unexpected record: %+v", got)
	}

	// Same file replaces the earlier record
	if err := s.PutPaper(domain.PaperRecord{File: "vaswani.pdf", Title: "Updated"}); err != nil {
		t.Fatal(err)
	}
	papers, err := s.ListPapers()
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}
	if papers[0].File != "bert.pdf" || papers[1].Title != "Updated" {
		t.Errorf("unexpected listing: %+v", papers)
	}

	if _, err := s.GetPaper("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.PutPaper(domain.PaperRecord{}); err == nil {
		t.Error("expected error for record without file")
	}
}

func TestBoltStore_Runs(t *testing.T) {
	s := openStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	later := domain.RunRecord{ID: "b", StartedAt: base.Add(time.Hour), Processed: 2}
	earlier := domain.RunRecord{ID: "a", StartedAt: base, Processed: 1, Skipped: map[string]string{"x.pdf": "no_extractable_text"}}

	for _, run := range []domain.RunRecord{later, earlier} {
		if err := s.PutRun(run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "a" || runs[1].ID != "b" {
		t.Errorf("runs not in chronological order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Skipped["x.pdf"] != "no_extractable_text" {
		t.Errorf("skipped map not persisted: %+v", runs[0])
	}

	if err := s.PutRun(domain.RunRecord{}); err == nil {
		t.Error("expected error for run without id")
	}
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutPaper(domain.PaperRecord{File: "paper.txt", Title: "Kept"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.GetPaper("paper")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Kept" {
		t.Errorf("expected persisted title, got %q", got.Title)
	}
}

func TestMigrate(t *testing.T) {
	s := openStore(t)
	cfg := config.DefaultConfig()

	result, err := s.Migrate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsMigration || result.OldVersion != 0 {
		t.Errorf("fresh store should need initialisation: %+v", result)
	}

	info, err := s.GetSchemaInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != CurrentSchemaVersion || info.ConfigHash != ComputeConfigHash(cfg) {
		t.Errorf("unexpected schema info: %+v", info)
	}

	result, err = s.CheckMigration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.SettingsChanged {
		t.Errorf("expected up-to-date store: %+v", result)
	}

	changed := config.DefaultConfig()
	changed.Chunk.MaxChars = 800
	result, err = s.CheckMigration(changed)
	if err != nil {
		t.Fatal(err)
	}
	if !result.SettingsChanged {
		t.Error("expected settings change to be detected")
	}
}

func TestMigrate_NewerSchema(t *testing.T) {
	s := openStore(t)
	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}

	result, err := s.Migrate(config.DefaultConfig())
	if err == nil {
		t.Fatal("expected error for newer schema")
	}
	if result == nil || !result.Incompatible {
		t.Errorf("expected incompatible result, got %+v", result)
	}
}

func TestClear(t *testing.T) {
	s := openStore(t)
	s.PutPaper(domain.PaperRecord{File: "a.pdf"})
	s.PutRun(domain.RunRecord{ID: "r1", StartedAt: time.Now()})
	if _, err := s.Migrate(config.DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	papers, _ := s.ListPapers()
	runs, _ := s.ListRuns()
	if len(papers) != 0 || len(runs) != 0 {
		t.Errorf("expected empty store, got %d papers %d runs", len(papers), len(runs))
	}
	info, _ := s.GetSchemaInfo()
	if info.Version != CurrentSchemaVersion {
		t.Error("clear must keep schema info")
	}
}

func TestComputeConfigHash(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("identical configs should hash equally")
	}
	b.Index.MaxDocFreq = 0.5
	if ComputeConfigHash(a) == ComputeConfigHash(b) {
		t.Error("max_doc_freq should affect the hash")
	}
	b = config.DefaultConfig()
	b.Logging.Level = "debug"
	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("logging settings should not affect the hash")
	}
}

var _ port.HistoryStore = (*BoltStore)(nil)
