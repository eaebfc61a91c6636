package recall

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/storyforge/internal/embeddings"
	"github.com/ziadkadry99/storyforge/internal/project"
)

func testProject() *project.Project {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := project.New("Tides", "fantasy", "", now)
	p.AddEntity(project.KindCharacter, "Mara", "Captain of the Iron Gull, fears deep water", nil, now)
	p.AddEntity(project.KindLocation, "Saltmarket", "A harbour town full of fish stalls and smugglers", []string{"harbour"}, now)
	p.AddEntity(project.KindItem, "Brass Compass", "Points toward whatever its holder has lost", nil, now)
	p.AddMemory("Mara never speaks about her brother", now)
	return p
}

func TestQueryRanksRelevantLore(t *testing.T) {
	idx := New(embeddings.NewLocalEmbedder(embeddings.DefaultLocalDimensions))
	p := testProject()

	hits, err := idx.Query(context.Background(), p, "The compass spun toward what she had lost", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Title != "Brass Compass" {
		t.Errorf("expected compass first, got %q", hits[0].Title)
	}
}

func TestQueryClampsToCollectionSize(t *testing.T) {
	idx := New(embeddings.NewLocalEmbedder(64))
	hits, err := idx.Query(context.Background(), testProject(), "Mara", 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 4 {
		t.Errorf("expected 4 hits, got %d", len(hits))
	}
}

func TestQueryRebuildsAfterLoreChange(t *testing.T) {
	idx := New(embeddings.NewLocalEmbedder(64))
	p := testProject()
	ctx := context.Background()

	if _, err := idx.Query(ctx, p, "harbour", 10); err != nil {
		t.Fatalf("Query: %v", err)
	}
	p.AddEntity(project.KindLore, "The Drowning", "The flood that sank the old city", nil, time.Now())

	hits, err := idx.Query(ctx, p, "flood", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("expected the new entity to be indexed, got %d hits", len(hits))
	}
}

func TestQueryEmptyProjectAndText(t *testing.T) {
	idx := New(embeddings.NewLocalEmbedder(64))
	empty := project.New("Blank", "", "", time.Now())

	if hits, err := idx.Query(context.Background(), empty, "anything", 3); err != nil || hits != nil {
		t.Errorf("expected no hits for empty project, got %v, %v", hits, err)
	}
	if hits, err := idx.Query(context.Background(), testProject(), "   ", 3); err != nil || hits != nil {
		t.Errorf("expected no hits for blank text, got %v, %v", hits, err)
	}
}

func TestFormat(t *testing.T) {
	if Format(nil) != "" {
		t.Error("expected empty block for no hits")
	}
	out := Format([]Hit{{Text: "Mara (character): captain"}})
	if !strings.Contains(out, "- Mara (character): captain") {
		t.Errorf("unexpected block %q", out)
	}
}
