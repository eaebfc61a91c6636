package selftest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunPassesWithLocalProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".storyforge.yml")
	if err := os.WriteFile(path, []byte("provider: ollama\nmodel: llama3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := Run(context.Background(), Options{ConfigPath: path, WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Checks) != len(steps) {
		t.Fatalf("expected %d checks, got %d", len(steps), len(report.Checks))
	}
	for _, c := range report.Checks {
		if c.Status != StatusPass {
			t.Errorf("check %s: %s (%s)", c.Name, c.Status, c.Detail)
		}
	}
	if !report.OK() {
		t.Error("report should be OK")
	}
}

func TestRunWarnsWithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, ".storyforge.yml")
	if err := os.WriteFile(path, []byte("provider: openai\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := Run(context.Background(), Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	last := report.Checks[len(report.Checks)-1]
	if last.Name != "provider" || last.Status != StatusWarn {
		t.Errorf("provider check = %+v", last)
	}
	if !report.OK() {
		t.Error("a warning must not fail the run")
	}
}

func TestRunStepRecoversPanics(t *testing.T) {
	s := step{name: "boom", run: func(context.Context, *env) (string, error) { panic("boom") }}
	if _, err := runStep(context.Background(), s, &env{}); err == nil {
		t.Error("expected panic to become an error")
	}
}

func TestMissingConfigWarns(t *testing.T) {
	report, err := Run(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "nope.yml")})
	if err != nil {
		t.Fatal(err)
	}
	if report.Checks[0].Name != "config" || report.Checks[0].Status != StatusWarn {
		t.Errorf("config check = %+v", report.Checks[0])
	}
}
