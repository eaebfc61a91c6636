// Package project models a writing project and persists it as one JSON file
// per project.
package project

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every saved file.
const SchemaVersion = 1

// EntityKind categorizes world bible entries.
type EntityKind string

const (
	KindCharacter EntityKind = "character"
	KindLocation  EntityKind = "location"
	KindItem      EntityKind = "item"
	KindLore      EntityKind = "lore"
)

// Kinds returns the entity kinds in display order.
func Kinds() []EntityKind {
	return []EntityKind{KindCharacter, KindLocation, KindItem, KindLore}
}

// ParseKind validates a kind string.
func ParseKind(s string) (EntityKind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Chapter is one section of the manuscript.
type Chapter struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Notes       string    `json:"notes,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	TargetWords int       `json:"target_words,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entity is a world bible entry: a character, place, object or piece of lore.
type Entity struct {
	ID          string     `json:"id"`
	Kind        EntityKind `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MemoryNote is a fact the AI should keep in mind when writing for this
// project.
type MemoryNote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Project is the full save file.
type Project struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Genre     string       `json:"genre,omitempty"`
	Synopsis  string       `json:"synopsis,omitempty"`
	Outline   string       `json:"outline,omitempty"`
	Chapters  []Chapter    `json:"chapters"`
	Entities  []Entity     `json:"entities"`
	Memory    []MemoryNote `json:"memory"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// New returns an empty project with a fresh ID.
func New(title, genre, synopsis string, now time.Time) *Project {
	return &Project{
		Version:   SchemaVersion,
		ID:        uuid.New().String(),
		Title:     title,
		Genre:     genre,
		Synopsis:  synopsis,
		Chapters:  []Chapter{},
		Entities:  []Entity{},
		Memory:    []MemoryNote{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ErrNoSuchItem is returned when a chapter, entity or note ID is unknown.
var ErrNoSuchItem = fmt.Errorf("no such item")

// Chapter returns the chapter with the given ID.
func (p *Project) Chapter(id string) (*Chapter, bool) {
	for i := range p.Chapters {
		if p.Chapters[i].ID == id {
			return &p.Chapters[i], true
		}
	}
	return nil, false
}

// AddChapter appends a new, empty chapter.
func (p *Project) AddChapter(title string, now time.Time) *Chapter {
	if title == "" {
		title = fmt.Sprintf("Chapter %d", len(p.Chapters)+1)
	}
	p.Chapters = append(p.Chapters, Chapter{
		ID:        uuid.New().String(),
		Title:     title,
		UpdatedAt: now,
	})
	p.UpdatedAt = now
	return &p.Chapters[len(p.Chapters)-1]
}

// UpdateChapter replaces the editable fields of a chapter.
func (p *Project) UpdateChapter(id, title, content, notes string, now time.Time) error {
	ch, ok := p.Chapter(id)
	if !ok {
		return fmt.Errorf("chapter %s: %w", id, ErrNoSuchItem)
	}
	if title != "" {
		ch.Title = title
	}
	ch.Content = content
	ch.Notes = notes
	ch.UpdatedAt = now
	p.UpdatedAt = now
	return nil
}

// DeleteChapter removes a chapter.
func (p *Project) DeleteChapter(id string, now time.Time) error {
	for i := range p.Chapters {
		if p.Chapters[i].ID == id {
			p.Chapters = append(p.Chapters[:i], p.Chapters[i+1:]...)
			p.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("chapter %s: %w", id, ErrNoSuchItem)
}

// MoveChapter shifts a chapter by delta positions, clamped to the ends.
func (p *Project) MoveChapter(id string, delta int, now time.Time) error {
	from := -1
	for i := range p.Chapters {
		if p.Chapters[i].ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("chapter %s: %w", id, ErrNoSuchItem)
	}
	to := from + delta
	if to < 0 {
		to = 0
	}
	if to >= len(p.Chapters) {
		to = len(p.Chapters) - 1
	}
	ch := p.Chapters[from]
	p.Chapters = append(p.Chapters[:from], p.Chapters[from+1:]...)
	p.Chapters = append(p.Chapters[:to], append([]Chapter{ch}, p.Chapters[to:]...)...)
	p.UpdatedAt = now
	return nil
}

// Entity returns the world bible entry with the given ID.
func (p *Project) Entity(id string) (*Entity, bool) {
	for i := range p.Entities {
		if p.Entities[i].ID == id {
			return &p.Entities[i], true
		}
	}
	return nil, false
}

// EntitiesOf returns entries of one kind; an empty kind returns all.
func (p *Project) EntitiesOf(kind EntityKind) []Entity {
	if kind == "" {
		return p.Entities
	}
	var out []Entity
	for _, e := range p.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// AddEntity appends a world bible entry.
func (p *Project) AddEntity(kind EntityKind, name, description string, tags []string, now time.Time) *Entity {
	p.Entities = append(p.Entities, Entity{
		ID:          uuid.New().String(),
		Kind:        kind,
		Name:        name,
		Description: description,
		Tags:        tags,
		UpdatedAt:   now,
	})
	p.UpdatedAt = now
	return &p.Entities[len(p.Entities)-1]
}

// UpdateEntity replaces the editable fields of an entry.
func (p *Project) UpdateEntity(id, name, description string, tags []string, now time.Time) error {
	e, ok := p.Entity(id)
	if !ok {
		return fmt.Errorf("entity %s: %w", id, ErrNoSuchItem)
	}
	if name != "" {
		e.Name = name
	}
	e.Description = description
	e.Tags = tags
	e.UpdatedAt = now
	p.UpdatedAt = now
	return nil
}

// DeleteEntity removes a world bible entry.
func (p *Project) DeleteEntity(id string, now time.Time) error {
	for i := range p.Entities {
		if p.Entities[i].ID == id {
			p.Entities = append(p.Entities[:i], p.Entities[i+1:]...)
			p.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("entity %s: %w", id, ErrNoSuchItem)
}

// AddMemory records a note for the AI.
func (p *Project) AddMemory(text string, now time.Time) *MemoryNote {
	p.Memory = append(p.Memory, MemoryNote{ID: uuid.New().String(), Text: text, CreatedAt: now})
	p.UpdatedAt = now
	return &p.Memory[len(p.Memory)-1]
}

// DeleteMemory removes a memory note.
func (p *Project) DeleteMemory(id string, now time.Time) error {
	for i := range p.Memory {
		if p.Memory[i].ID == id {
			p.Memory = append(p.Memory[:i], p.Memory[i+1:]...)
			p.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("memory note %s: %w", id, ErrNoSuchItem)
}

// WordCount returns the total words across all chapters.
func (p *Project) WordCount() int {
	n := 0
	for _, ch := range p.Chapters {
		n += WordCount(ch.Content)
	}
	return n
}

// normalize fills nil slices so freshly decoded and freshly created projects
// look the same.
func (p *Project) normalize() {
	if p.Chapters == nil {
		p.Chapters = []Chapter{}
	}
	if p.Entities == nil {
		p.Entities = []Entity{}
	}
	if p.Memory == nil {
		p.Memory = []MemoryNote{}
	}
	if p.Version == 0 {
		p.Version = SchemaVersion
	}
}
