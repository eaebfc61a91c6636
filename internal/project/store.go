package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ziadkadry99/storyforge/internal/atomicfile"
)

var (
	// ErrNotFound means no project file exists for the ID.
	ErrNotFound = errors.New("project not found")
	// ErrCorruptData means the file exists but cannot be decoded into a project.
	ErrCorruptData = errors.New("project data is corrupt")
)

const (
	fileExt   = ".json"
	backupExt = ".json.bak"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Summary is the lightweight listing entry for a project.
type Summary struct {
	ID        string
	Title     string
	Genre     string
	Chapters  int
	Words     int
	UpdatedAt time.Time
	Corrupt   bool
}

// Store reads and writes projects under a directory, one file per project.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a Store rooted at dir. The directory is created on first
// save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Now returns the store's clock, used to stamp edits.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Create makes a new project and saves it.
func (s *Store) Create(title, genre, synopsis string) (*Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("project title is required")
	}
	p := New(title, strings.TrimSpace(genre), strings.TrimSpace(synopsis), s.now())
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the project with the given ID. It fails with ErrNotFound or
// ErrCorruptData.
func (s *Store) Load(id string) (*Project, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading project %s: %w", id, err)
	}
	p, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, id, err)
	}
	if p.ID != id {
		return nil, fmt.Errorf("%w: %s: file holds project %q", ErrCorruptData, id, p.ID)
	}
	return p, nil
}

func decode(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("missing project id")
	}
	p.normalize()
	return &p, nil
}

// Save writes the project atomically and keeps the previous good version as
// a backup next to it.
func (s *Store) Save(p *Project) error {
	if !validID.MatchString(p.ID) {
		return fmt.Errorf("invalid project id %q", p.ID)
	}
	p.normalize()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling project: %w", err)
	}

	path := s.path(p.ID)
	if old, err := os.ReadFile(path); err == nil {
		if _, derr := decode(old); derr == nil {
			if err := atomicfile.WriteFile(path[:len(path)-len(fileExt)]+backupExt, old, 0o644); err != nil {
				return fmt.Errorf("writing backup: %w", err)
			}
		}
	}

	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving project %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a project and its backup.
func (s *Store) Delete(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	_ = os.Remove(filepath.Join(s.dir, id+backupExt))
	return nil
}

// List returns a summary of every project, newest first. Unreadable files
// are listed with Corrupt set so the UI can point at repair.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || atomicfile.IsTemp(name) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		p, err := s.Load(id)
		if err != nil {
			out = append(out, Summary{ID: id, Title: id, Corrupt: true})
			continue
		}
		out = append(out, Summary{
			ID:        p.ID,
			Title:     p.Title,
			Genre:     p.Genre,
			Chapters:  len(p.Chapters),
			Words:     p.WordCount(),
			UpdatedAt: p.UpdatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
