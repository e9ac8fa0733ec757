package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBase_AddGet(t *testing.T) {
	b, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	id, err := b.Add("Quantum Codes", map[string]string{"summary": "stabilizer codes"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(id, "quantum-codes_") {
		t.Errorf("expected slug-prefixed ID, got %q", id)
	}

	e := b.Get(id)
	if e == nil {
		t.Fatal("expected entry back")
	}
	if e.Topic != "Quantum Codes" {
		t.Errorf("expected topic preserved, got %q", e.Topic)
	}
	if !strings.Contains(string(e.Content), "stabilizer codes") {
		t.Errorf("expected content stored, got %s", e.Content)
	}

	if b.Get("missing") != nil {
		t.Error("expected nil for unknown ID")
	}
}

func TestBase_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := b.Add("topic", "payload")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get(id) == nil {
		t.Fatal("expected entry to survive reopen")
	}
}

func TestBase_Update(t *testing.T) {
	b, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, _ := b.Add("topic", "v1")

	ok, err := b.Update(id, "v2")
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if got := string(b.Get(id).Content); got != `"v2"` {
		t.Errorf("expected updated content, got %s", got)
	}

	ok, err = b.Update("missing", "v2")
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Error("expected false for unknown ID")
	}
}

func TestBase_Search(t *testing.T) {
	b, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b.Add("Error Correction", map[string]string{"note": "surface codes"})
	b.Add("Cryptography", map[string]string{"note": "lattice schemes"})

	hits := b.Search("SURFACE")
	if len(hits) != 1 || hits[0].Topic != "Error Correction" {
		t.Fatalf("expected one content hit, got %d", len(hits))
	}

	hits = b.Search("cryptography")
	if len(hits) != 1 || hits[0].Topic != "Cryptography" {
		t.Fatalf("expected one topic hit, got %d", len(hits))
	}

	if got := len(b.Search("")); got != 2 {
		t.Errorf("expected empty query to return everything, got %d", got)
	}
	if got := len(b.Search("nonexistent")); got != 0 {
		t.Errorf("expected no hits, got %d", got)
	}
}

func TestBase_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(b.Search("")); got != 0 {
		t.Errorf("expected corrupt file ignored, got %d entries", got)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Quantum Codes", "quantum-codes"},
		{"  A & B  ", "a-b"},
		{"!!!", "entry"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
