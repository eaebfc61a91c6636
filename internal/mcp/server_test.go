package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/storyforge/internal/embeddings"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
)

func newTestStore(t *testing.T) (*project.Store, *project.Project) {
	t.Helper()
	store := project.NewStore(t.TempDir())
	p, err := store.Create("The Cartographer", "adventure", "A mapmaker charts an island that moves.")
	if err != nil {
		t.Fatal(err)
	}
	now := store.Now()
	p.Outline = "1. Arrival\n2. The shifting coast"
	c1 := p.AddChapter("Arrival", now)
	_ = p.UpdateChapter(c1.ID, "Arrival", "The boat scraped sand at dawn.", "Introduce Oren.", now)
	p.AddChapter("The Shifting Coast", now)
	p.AddEntity(project.KindCharacter, "Oren", "A cartographer who never sleeps.", []string{"lead"}, now)
	p.AddEntity(project.KindLocation, "Veil Island", "An island whose coastline moves each night.", nil, now)
	p.AddMemory("Oren keeps his maps in a tin case.", now)
	if err := store.Save(p); err != nil {
		t.Fatal(err)
	}
	return store, p
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"list_projects", listProjectsTool, "list_projects"},
		{"get_project", getProjectTool, "get_project"},
		{"get_chapter", getChapterTool, "get_chapter"},
		{"search_world_bible", searchWorldBibleTool, "search_world_bible"},
		{"export_project", exportProjectTool, "export_project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	store, _ := newTestStore(t)
	srv := NewServer(store, nil)

	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.store != store {
		t.Error("store not set correctly")
	}
}

func TestHandleListProjects(t *testing.T) {
	store, p := newTestStore(t)
	if err := os.WriteFile(filepath.Join(store.Dir(), "torn.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := NewServer(store, nil)

	result, err := srv.handleListProjects(context.Background(), call(nil))
	if err != nil || result.IsError {
		t.Fatalf("unexpected failure: %v %v", err, result)
	}
	text := extractText(result)
	if !strings.Contains(text, p.ID) || !strings.Contains(text, "2 chapters") {
		t.Errorf("listing missing project:\n%s", text)
	}
	if !strings.Contains(text, "torn: damaged file") {
		t.Errorf("listing missing damaged file:\n%s", text)
	}

	empty := NewServer(project.NewStore(t.TempDir()), nil)
	result, _ = empty.handleListProjects(context.Background(), call(nil))
	if result.IsError || !strings.Contains(extractText(result), "No projects yet") {
		t.Errorf("unexpected empty listing %v", result)
	}
}

func TestHandleGetProject(t *testing.T) {
	store, p := newTestStore(t)
	srv := NewServer(store, nil)

	result, _ := srv.handleGetProject(context.Background(), call(map[string]any{"project_id": p.ID}))
	text := extractText(result)
	for _, want := range []string{"# The Cartographer", "The shifting coast", "1. Arrival", "tin case"} {
		if !strings.Contains(text, want) {
			t.Errorf("project text missing %q", want)
		}
	}

	t.Run("missing id", func(t *testing.T) {
		result, _ := srv.handleGetProject(context.Background(), call(map[string]any{}))
		if !result.IsError {
			t.Error("expected error for missing project_id")
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		result, _ := srv.handleGetProject(context.Background(), call(map[string]any{"project_id": "nope"}))
		if !result.IsError || !strings.Contains(extractText(result), "list_projects") {
			t.Errorf("unexpected result %v", extractText(result))
		}
	})
}

func TestHandleGetChapter(t *testing.T) {
	store, p := newTestStore(t)
	srv := NewServer(store, nil)
	ctx := context.Background()

	result, _ := srv.handleGetChapter(ctx, call(map[string]any{"project_id": p.ID}))
	if text := extractText(result); !strings.Contains(text, "scraped sand") || !strings.Contains(text, "Introduce Oren.") {
		t.Errorf("first chapter text:\n%s", text)
	}

	result, _ = srv.handleGetChapter(ctx, call(map[string]any{"project_id": p.ID, "number": float64(2)}))
	if text := extractText(result); !strings.Contains(text, "# The Shifting Coast") {
		t.Errorf("second chapter text:\n%s", text)
	}

	result, _ = srv.handleGetChapter(ctx, call(map[string]any{"project_id": p.ID, "chapter_id": p.Chapters[1].ID}))
	if text := extractText(result); !strings.Contains(text, "# The Shifting Coast") {
		t.Errorf("chapter by id:\n%s", text)
	}

	result, _ = srv.handleGetChapter(ctx, call(map[string]any{"project_id": p.ID, "number": float64(9)}))
	if !result.IsError {
		t.Error("expected error for out of range chapter")
	}
}

func TestHandleSearchWorldBible(t *testing.T) {
	store, p := newTestStore(t)
	ctx := context.Background()

	t.Run("recall index", func(t *testing.T) {
		srv := NewServer(store, recall.New(embeddings.NewLocalEmbedder(embeddings.DefaultLocalDimensions)))
		result, err := srv.handleSearchWorldBible(ctx, call(map[string]any{
			"project_id": p.ID,
			"query":      "island coastline moves",
			"limit":      float64(1),
		}))
		if err != nil || result.IsError {
			t.Fatalf("unexpected failure: %v %v", err, extractText(result))
		}
		if text := extractText(result); !strings.Contains(text, "Veil Island") {
			t.Errorf("expected Veil Island first:\n%s", text)
		}
	})

	t.Run("kind filter", func(t *testing.T) {
		srv := NewServer(store, recall.New(embeddings.NewLocalEmbedder(embeddings.DefaultLocalDimensions)))
		result, _ := srv.handleSearchWorldBible(ctx, call(map[string]any{
			"project_id": p.ID,
			"query":      "Oren maps",
			"kind":       "memory",
		}))
		text := extractText(result)
		if !strings.Contains(text, "tin case") || strings.Contains(text, "(character") {
			t.Errorf("kind filter not applied:\n%s", text)
		}
	})

	t.Run("literal fallback", func(t *testing.T) {
		srv := NewServer(store, nil)
		result, _ := srv.handleSearchWorldBible(ctx, call(map[string]any{"project_id": p.ID, "query": "cartographer"}))
		if text := extractText(result); !strings.Contains(text, "## Oren") {
			t.Errorf("literal search:\n%s", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		srv := NewServer(store, nil)
		result, _ := srv.handleSearchWorldBible(ctx, call(map[string]any{"project_id": p.ID}))
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})
}

func TestHandleExportProject(t *testing.T) {
	store, p := newTestStore(t)
	srv := NewServer(store, nil)
	ctx := context.Background()

	result, _ := srv.handleExportProject(ctx, call(map[string]any{"project_id": p.ID}))
	if text := extractText(result); !strings.HasPrefix(text, "# The Cartographer") {
		t.Errorf("markdown export:\n%s", text)
	}

	result, _ = srv.handleExportProject(ctx, call(map[string]any{"project_id": p.ID, "format": "html"}))
	if !result.IsError {
		t.Error("html should be rejected")
	}
}
