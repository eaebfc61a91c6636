package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const googleEmbedBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleModel represents a supported Google embedding model.
type GoogleModel string

const (
	ModelGeminiEmbedding001 GoogleModel = "gemini-embedding-001"
)

// GoogleEmbedder generates embeddings using Google's Generative AI API.
type GoogleEmbedder struct {
	apiKey     string
	model      GoogleModel
	baseURL    string
	httpClient *http.Client
}

// NewGoogleEmbedder creates a new Google embedder.
func NewGoogleEmbedder(apiKey string, model GoogleModel) *GoogleEmbedder {
	return &GoogleEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    googleEmbedBaseURL,
		httpClient: &http.Client{},
	}
}

func (e *GoogleEmbedder) Name() string {
	return string(e.model)
}

func (e *GoogleEmbedder) Dimensions() int {
	return 3072
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedRequest struct {
	Content struct {
		Parts []googlePart `json:"parts"`
	} `json:"content"`
}

type googleEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/%s:embedContent?key=%s", e.baseURL, e.model, url.QueryEscape(e.apiKey))
	results := make([][]float32, 0, len(texts))
	for _, text := range texts {
		var req googleEmbedRequest
		req.Content.Parts = []googlePart{{Text: text}}

		var resp googleEmbedResponse
		if err := postJSON(ctx, e.httpClient, endpoint, req, &resp); err != nil {
			return nil, fmt.Errorf("google embed: %w", err)
		}
		if len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("google returned an empty embedding")
		}
		results = append(results, resp.Embedding.Values)
	}
	return results, nil
}
