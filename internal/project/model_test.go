package project

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestChapterLifecycle(t *testing.T) {
	p := New("Book", "", "", t0)

	a := p.AddChapter("", t0)
	if a.Title != "Chapter 1" {
		t.Errorf("default title = %q", a.Title)
	}
	b := p.AddChapter("Interlude", t0)
	c := p.AddChapter("Finale", t0)

	if err := p.UpdateChapter(b.ID, "", "new words here", "note", t0.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateChapter: %v", err)
	}
	got, _ := p.Chapter(b.ID)
	if got.Title != "Interlude" || got.Content != "new words here" || got.Notes != "note" {
		t.Errorf("unexpected chapter %+v", got)
	}
	if !p.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Error("project timestamp not bumped")
	}

	if err := p.MoveChapter(c.ID, -5, t0); err != nil {
		t.Fatalf("MoveChapter: %v", err)
	}
	if p.Chapters[0].Title != "Finale" || p.Chapters[1].Title != "Chapter 1" || p.Chapters[2].Title != "Interlude" {
		t.Errorf("unexpected order after move: %v", titles(p))
	}
	if err := p.MoveChapter(p.Chapters[0].ID, 1, t0); err != nil {
		t.Fatal(err)
	}
	if p.Chapters[0].Title != "Chapter 1" || p.Chapters[1].Title != "Finale" {
		t.Errorf("unexpected order after move down: %v", titles(p))
	}

	if err := p.DeleteChapter(a.ID, t0); err != nil {
		t.Fatalf("DeleteChapter: %v", err)
	}
	if len(p.Chapters) != 2 {
		t.Errorf("expected 2 chapters, got %d", len(p.Chapters))
	}
	if err := p.DeleteChapter("nope", t0); !errors.Is(err, ErrNoSuchItem) {
		t.Errorf("expected ErrNoSuchItem, got %v", err)
	}
	if p.WordCount() != 3 {
		t.Errorf("WordCount = %d, want 3", p.WordCount())
	}
}

func titles(p *Project) []string {
	var out []string
	for _, ch := range p.Chapters {
		out = append(out, ch.Title)
	}
	return out
}

func TestEntitiesAndMemory(t *testing.T) {
	p := New("Book", "", "", t0)
	mara := p.AddEntity(KindCharacter, "Mara", "A salt trader.", []string{"protagonist"}, t0)
	p.AddEntity(KindLocation, "The Flats", "White desert.", nil, t0)

	if got := p.EntitiesOf(KindCharacter); len(got) != 1 || got[0].Name != "Mara" {
		t.Errorf("EntitiesOf(character) = %+v", got)
	}
	if got := p.EntitiesOf(""); len(got) != 2 {
		t.Errorf("EntitiesOf(all) = %d entries", len(got))
	}

	if err := p.UpdateEntity(mara.ID, "", "A salt trader with a debt.", nil, t0); err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	e, _ := p.Entity(mara.ID)
	if e.Name != "Mara" || e.Description != "A salt trader with a debt." {
		t.Errorf("unexpected entity %+v", e)
	}
	if err := p.DeleteEntity(mara.ID, t0); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}

	note := p.AddMemory("Mara never lies.", t0)
	if err := p.DeleteMemory(note.ID, t0); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if err := p.DeleteMemory(note.ID, t0); !errors.Is(err, ErrNoSuchItem) {
		t.Errorf("expected ErrNoSuchItem, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("location"); !ok || k != KindLocation {
		t.Errorf("ParseKind(location) = %v, %v", k, ok)
	}
	if _, ok := ParseKind("vehicle"); ok {
		t.Error("unexpected kind accepted")
	}
}

func TestReadability(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantGrade int
		wantAges  string
	}{
		{"simple sentence", "The cat sat on the mat.", 1, "5-6"},
		{"empty text", "", 1, "5-6"},
		{"single word", "Hello", 3, "8-9"},
		{"complex text", "The quick brown fox jumps over the lazy dog. This is a test sentence with more complexity and additional words to increase the grade level.", 7, "12-13"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade, ages := Readability(tt.text)
			if grade != tt.wantGrade || ages != tt.wantAges {
				t.Errorf("Readability() = %d %q, want %d %q", grade, ages, tt.wantGrade, tt.wantAges)
			}
		})
	}
}

func TestReadingMinutes(t *testing.T) {
	if ReadingMinutes(0) != 0 || ReadingMinutes(1) != 1 || ReadingMinutes(230) != 1 || ReadingMinutes(231) != 2 {
		t.Error("unexpected reading time")
	}
}
