package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/storyforge/internal/atomicfile"
)

// RepairAction is what repair did to one file.
type RepairAction string

const (
	RepairOK          RepairAction = "ok"
	RepairRemovedTemp RepairAction = "removed_temp"
	RepairRestored    RepairAction = "restored_backup"
	RepairQuarantined RepairAction = "quarantined"
	RepairFailed      RepairAction = "failed"
)

// RepairResult describes the outcome for one file.
type RepairResult struct {
	Path   string
	Action RepairAction
	Detail string
}

// RepairReport summarizes a repair run.
type RepairReport struct {
	Results []RepairResult
}

// Count returns how many files ended with the given action.
func (r *RepairReport) Count(a RepairAction) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}
	return n
}

// ProgressFunc is called after each file is examined.
type ProgressFunc func(done, total int, name string)

// Repair scans the store for leftovers of interrupted saves and damaged
// project files. Stale temp files are deleted. A corrupt project is restored
// from its backup when the backup decodes; otherwise it is renamed aside
// with a .corrupt-<timestamp> suffix so it no longer shows up as a project.
func (s *Store) Repair(progress ProgressFunc) (*RepairReport, error) {
	fsys := os.DirFS(s.dir)

	temps, err := doublestar.Glob(fsys, "**/"+atomicfile.TempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scanning temp files: %w", err)
	}
	projects, err := doublestar.Glob(fsys, "*"+fileExt)
	if err != nil {
		return nil, fmt.Errorf("scanning projects: %w", err)
	}

	var candidates []string
	for _, p := range projects {
		if !atomicfile.IsTemp(p) {
			candidates = append(candidates, p)
		}
	}

	report := &RepairReport{}
	total := len(temps) + len(candidates)
	done := 0
	step := func(name string) {
		done++
		if progress != nil {
			progress(done, total, name)
		}
	}

	for _, rel := range temps {
		path := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil {
			report.Results = append(report.Results, RepairResult{Path: path, Action: RepairFailed, Detail: err.Error()})
		} else {
			report.Results = append(report.Results, RepairResult{Path: path, Action: RepairRemovedTemp})
		}
		step(rel)
	}

	for _, rel := range candidates {
		report.Results = append(report.Results, s.repairOne(rel))
		step(rel)
	}

	return report, nil
}

func (s *Store) repairOne(rel string) RepairResult {
	path := filepath.Join(s.dir, filepath.FromSlash(rel))
	id := strings.TrimSuffix(filepath.Base(rel), fileExt)

	_, loadErr := s.Load(id)
	if loadErr == nil {
		return RepairResult{Path: path, Action: RepairOK}
	}

	backupPath := filepath.Join(s.dir, id+backupExt)
	if data, err := os.ReadFile(backupPath); err == nil {
		if p, err := decode(data); err == nil && p.ID == id {
			if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
				return RepairResult{Path: path, Action: RepairFailed, Detail: err.Error()}
			}
			return RepairResult{Path: path, Action: RepairRestored, Detail: loadErr.Error()}
		}
	}

	aside := fmt.Sprintf("%s.corrupt-%s", path, s.now().UTC().Format("20060102-150405"))
	if err := os.Rename(path, aside); err != nil {
		return RepairResult{Path: path, Action: RepairFailed, Detail: err.Error()}
	}
	return RepairResult{Path: path, Action: RepairQuarantined, Detail: "moved to " + filepath.Base(aside)}
}
