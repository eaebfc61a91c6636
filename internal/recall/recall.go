// Package recall retrieves the world bible entries and memory notes most
// relevant to a piece of text, so prompts can carry project lore.
package recall

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/storyforge/internal/embeddings"
	"github.com/ziadkadry99/storyforge/internal/project"
)

// KindMemory marks hits that come from memory notes rather than entities.
const KindMemory = "memory"

// Hit is one recalled item.
type Hit struct {
	ID         string
	Kind       string
	Title      string
	Text       string
	Similarity float32
}

// Index keeps one chromem collection per project and rebuilds it whenever
// the project's lore changes.
type Index struct {
	embed chromem.EmbeddingFunc

	mu     sync.Mutex
	db     *chromem.DB
	hashes map[string]string
}

// New creates an in-memory Index backed by embedder.
func New(embedder embeddings.Embedder) *Index {
	return &Index{
		embed:  embeddings.ToChromemFunc(embedder),
		db:     chromem.NewDB(),
		hashes: make(map[string]string),
	}
}

func collectionName(projectID string) string {
	return "project-" + projectID
}

// Query returns up to k items from p ranked by similarity to text.
func (x *Index) Query(ctx context.Context, p *project.Project, text string, k int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" || k <= 0 {
		return nil, nil
	}

	col, err := x.collection(ctx, p)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if k > count {
		k = count
	}

	results, err := col.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:         r.ID,
			Kind:       r.Metadata["kind"],
			Title:      r.Metadata["title"],
			Text:       r.Content,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// Forget drops the collection for a deleted project.
func (x *Index) Forget(projectID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.hashes, projectID)
	_ = x.db.DeleteCollection(collectionName(projectID))
}

func (x *Index) collection(ctx context.Context, p *project.Project) (*chromem.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	name := collectionName(p.ID)
	hash := loreHash(p)
	if x.hashes[p.ID] == hash {
		if col := x.db.GetCollection(name, x.embed); col != nil {
			return col, nil
		}
	}

	_ = x.db.DeleteCollection(name)
	delete(x.hashes, p.ID)
	col, err := x.db.GetOrCreateCollection(name, map[string]string{"project": p.ID}, x.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := documents(p)
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, 2); err != nil {
			_ = x.db.DeleteCollection(name)
			return nil, fmt.Errorf("index lore: %w", err)
		}
	}
	x.hashes[p.ID] = hash
	return col, nil
}

func documents(p *project.Project) []chromem.Document {
	docs := make([]chromem.Document, 0, len(p.Entities)+len(p.Memory))
	for _, e := range p.Entities {
		content := fmt.Sprintf("%s (%s): %s", e.Name, e.Kind, e.Description)
		if len(e.Tags) > 0 {
			content += " [" + strings.Join(e.Tags, ", ") + "]"
		}
		docs = append(docs, chromem.Document{
			ID:       e.ID,
			Content:  content,
			Metadata: map[string]string{"kind": string(e.Kind), "title": e.Name},
		})
	}
	for _, m := range p.Memory {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:       m.ID,
			Content:  m.Text,
			Metadata: map[string]string{"kind": KindMemory, "title": "Memory"},
		})
	}
	return docs
}

func loreHash(p *project.Project) string {
	h := sha256.New()
	for _, e := range p.Entities {
		fmt.Fprintf(h, "e\x00%s\x00%s\x00%s\x00%s\x00%s\n", e.ID, e.Kind, e.Name, e.Description, strings.Join(e.Tags, ","))
	}
	for _, m := range p.Memory {
		fmt.Fprintf(h, "m\x00%s\x00%s\n", m.ID, m.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Format renders hits as a prompt block. It returns "" for no hits.
func Format(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant story notes:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s\n", h.Text)
	}
	return b.String()
}
