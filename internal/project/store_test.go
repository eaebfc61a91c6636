package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func TestCreateAndLoad(t *testing.T) {
	store := setupTestStore(t)

	p, err := store.Create("The Salt Road", "fantasy", "A caravan crosses the flats.")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected non-empty ID")
	}

	loaded, err := store.Load(p.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title != "The Salt Road" || loaded.Genre != "fantasy" {
		t.Errorf("unexpected project %+v", loaded)
	}
	if loaded.Chapters == nil || loaded.Entities == nil || loaded.Memory == nil {
		t.Error("expected normalized empty slices")
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.Create("   ", "", ""); err == nil {
		t.Error("expected error for blank title")
	}
}

func TestLoadNotFound(t *testing.T) {
	store := setupTestStore(t)

	for _, id := range []string{"missing", "../etc/passwd", ""} {
		_, err := store.Load(id)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestLoadCorrupt(t *testing.T) {
	store := setupTestStore(t)
	tests := map[string]string{
		"truncated": `{"id": "truncated", "title": "Hal`,
		"noid":      `{"title": "No id"}`,
		"wrongid":   `{"id": "someone-else", "title": "Mismatch"}`,
		"badtype":   `{"id": "badtype", "chapters": "not a list"}`,
	}
	for id, content := range tests {
		if err := os.WriteFile(filepath.Join(store.Dir(), id+".json"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := store.Load(id)
		if !errors.Is(err, ErrCorruptData) {
			t.Errorf("Load(%q): expected ErrCorruptData, got %v", id, err)
		}
	}
}

func TestSaveKeepsBackup(t *testing.T) {
	store := setupTestStore(t)
	p, _ := store.Create("Draft", "", "")

	p.Title = "Second Draft"
	if err := store.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), p.ID+".json.bak"))
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if !strings.Contains(string(data), `"Draft"`) {
		t.Errorf("backup should hold previous version, got %s", data)
	}
}

func TestInterruptedSaveNeverExposesPartialFile(t *testing.T) {
	store := setupTestStore(t)
	p, _ := store.Create("Original", "", "")

	// A crash after the temp file was written but before the rename leaves a
	// partial temp file behind.
	partial := filepath.Join(store.Dir(), ".tmp-"+p.ID+".json-1234")
	if err := os.WriteFile(partial, []byte(`{"id": "`+p.ID+`", "title": "Rewri`), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(p.ID)
	if err != nil {
		t.Fatalf("Load after interrupted save: %v", err)
	}
	if loaded.Title != "Original" {
		t.Errorf("title = %q, want the old version", loaded.Title)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Corrupt {
		t.Errorf("temp file leaked into listing: %+v", list)
	}
}

func TestListSortsAndFlagsCorrupt(t *testing.T) {
	store := setupTestStore(t)
	base := store.now()

	store.now = func() time.Time { return base }
	older, _ := store.Create("Older", "", "")
	store.now = func() time.Time { return base.Add(time.Hour) }
	newer, _ := store.Create("Newer", "", "")
	newer.AddChapter("One", store.now())
	newer.Chapters[0].Content = "three little words"
	if err := store.Save(newer); err != nil {
		t.Fatal(err)
	}

	os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0o644)

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("unexpected order: %+v", list)
	}
	if list[0].Words != 3 || list[0].Chapters != 1 {
		t.Errorf("unexpected stats: %+v", list[0])
	}
	if !list[2].Corrupt {
		t.Error("expected broken file to be flagged corrupt")
	}
}

func TestListMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"))
	list, err := store.List()
	if err != nil || len(list) != 0 {
		t.Errorf("List on missing dir = %v, %v", list, err)
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	p, _ := store.Create("Gone", "", "")
	store.Save(p)

	if err := store.Delete(p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), p.ID+".json.bak")); !os.IsNotExist(err) {
		t.Error("backup should be removed with the project")
	}
	if err := store.Delete(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
