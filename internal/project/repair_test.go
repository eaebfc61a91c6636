package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRepairRemovesTempAndRestoresBackup(t *testing.T) {
	store := setupTestStore(t)

	good, _ := store.Create("Healthy", "", "")

	damaged, _ := store.Create("Damaged", "", "")
	damaged.Title = "Damaged v2"
	if err := store.Save(damaged); err != nil { // creates a backup of v1
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(store.Dir(), damaged.ID+".json"), []byte(`{"id": "`), 0o644)

	lost := "lost-project"
	os.WriteFile(filepath.Join(store.Dir(), lost+".json"), []byte("garbage"), 0o644)

	stray := filepath.Join(store.Dir(), ".tmp-"+good.ID+".json-999")
	os.WriteFile(stray, []byte("{"), 0o644)

	var calls int
	report, err := store.Repair(func(done, total int, name string) {
		calls++
		if done > total {
			t.Errorf("progress overflow: %d/%d", done, total)
		}
	})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if calls != 4 {
		t.Errorf("progress called %d times, want 4", calls)
	}

	if report.Count(RepairRemovedTemp) != 1 {
		t.Errorf("expected one temp removal: %+v", report.Results)
	}
	if report.Count(RepairRestored) != 1 {
		t.Errorf("expected one restore: %+v", report.Results)
	}
	if report.Count(RepairQuarantined) != 1 {
		t.Errorf("expected one quarantine: %+v", report.Results)
	}
	if report.Count(RepairOK) != 1 {
		t.Errorf("expected one healthy file: %+v", report.Results)
	}

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Error("stray temp file still present")
	}

	restored, err := store.Load(damaged.ID)
	if err != nil {
		t.Fatalf("Load restored: %v", err)
	}
	if restored.Title != "Damaged" {
		t.Errorf("restored title = %q, want backup version", restored.Title)
	}

	entries, _ := os.ReadDir(store.Dir())
	var quarantined bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), lost+".json.corrupt-") {
			quarantined = true
		}
	}
	if !quarantined {
		t.Error("expected corrupt file to be moved aside")
	}

	list, _ := store.List()
	for _, s := range list {
		if s.Corrupt {
			t.Errorf("listing still has corrupt entry %+v", s)
		}
	}
}

func TestRepairEmptyStore(t *testing.T) {
	store := setupTestStore(t)
	report, err := store.Repair(nil)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("expected no results, got %+v", report.Results)
	}
}
