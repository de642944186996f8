package fs

import (
	"os"
	"path/filepath"
	"testing"

	"paperrag/internal/port"
)

var _ port.FileWalker = (*Walker)(nil)

func TestWalker(t *testing.T) {
	root := t.TempDir()

	files := []string{
		"b_paper.pdf",
		"a_paper.pdf",
		"notes.txt",
		"drafts/old.pdf",
		"nested/deep/survey.pdf",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	walker := NewWalker([]string{"**/*.pdf"}, []string{"drafts/**"})
	found, err := walker.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(root, "a_paper.pdf"),
		filepath.Join(root, "b_paper.pdf"),
		filepath.Join(root, "nested", "deep", "survey.pdf"),
	}
	if len(found) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(found), found)
	}
	for i, f := range found {
		if f.Path != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], f.Path)
		}
		if f.Size != 1 {
			t.Errorf("file %d: expected size 1, got %d", i, f.Size)
		}
	}
}

func TestWalker_DefaultIncludes(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"one.pdf", "two.txt"} {
		if err := os.WriteFile(filepath.Join(root, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	found, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || filepath.Base(found[0].Path) != "one.pdf" {
		t.Errorf("expected only one.pdf, got %v", found)
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestSafeStem(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/data/Attention Is All You Need.pdf", "attention_is_all_you_need"},
		{"BERT--Pre-training (2019).pdf", "bert_pre_training_2019"},
		{"__weird__name__.txt", "weird_name"},
		{"résumé.pdf", "r_sum"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := SafeStem(tt.input); got != tt.want {
			t.Errorf("SafeStem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
