package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultVoyageModel is the default Voyage AI embedding model.
	// Anthropic has no native embedding API; Voyage is its recommended
	// embedding partner.
	// See: https://docs.anthropic.com/en/docs/build-with-claude/embeddings
	DefaultVoyageModel = "voyage-3"

	// voyageEndpoint is the Voyage AI embeddings endpoint.
	voyageEndpoint = "https://api.voyageai.com/v1/embeddings"
)

// VoyageEmbedder implements Embedder against the Voyage AI REST API.
type VoyageEmbedder struct {
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

var _ Embedder = (*VoyageEmbedder)(nil)

// NewVoyageEmbedder creates an embedding client using Voyage AI.
// apiKey must be a Voyage AI API key.
func NewVoyageEmbedder(apiKey, model string, dimension int) (*VoyageEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for Voyage embeddings")
	}
	if model == "" {
		model = DefaultVoyageModel
	}

	return &VoyageEmbedder{
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		client:    &http.Client{},
	}, nil
}

// Dimension returns the configured embedding dimension.
func (v *VoyageEmbedder) Dimension() int {
	return v.dimension
}

// voyageRequest is the request format for the Voyage AI API.
type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

// voyageResponse is the response format from the Voyage AI API.
type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates an embedding vector clamped to the configured dimension.
// Backend errors yield an empty vector.
func (v *VoyageEmbedder) Embed(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}

	vec, err := v.embed(ctx, text)
	if err != nil {
		slog.Warn("voyage embedding failed", "model", v.model, "error", err)
		return nil
	}
	return ClampDimension(vec, v.dimension)
}

func (v *VoyageEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := voyageRequest{
		Input: []string{text},
		Model: v.model,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", voyageEndpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var voyageResp voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&voyageResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(voyageResp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return voyageResp.Data[0].Embedding, nil
}
