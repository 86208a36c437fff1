package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/embeddings"
)

// bedrockInvoker is the slice of the bedrockruntime client the embedder
// uses, split out so tests can stub the wire call.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// bedrockEmbedderClient adapts Bedrock's embedding models (Titan, Cohere)
// to langchaingo's EmbedderClient. langchaingo's bedrock.LLM only covers
// text generation, so embeddings go through InvokeModel directly.
type bedrockEmbedderClient struct {
	client bedrockInvoker
	model  string
}

var _ embeddings.EmbedderClient = (*bedrockEmbedderClient)(nil)

func newBedrockEmbedderClient(client bedrockInvoker, model string) *bedrockEmbedderClient {
	return &bedrockEmbedderClient{client: client, model: model}
}

// titanEmbeddingRequest is the request body for amazon.titan-embed models.
type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbeddingResponse is the response body for amazon.titan-embed models.
type titanEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// cohereEmbeddingRequest is the request body for cohere.embed models.
type cohereEmbeddingRequest struct {
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

// cohereEmbeddingResponse is the response body for cohere.embed models.
type cohereEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// CreateEmbedding implements embeddings.EmbedderClient.
func (c *bedrockEmbedderClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.HasPrefix(c.model, "cohere.") {
		return c.embedCohere(ctx, texts)
	}
	return c.embedTitan(ctx, texts)
}

// embedTitan embeds one text per InvokeModel call; the Titan API has no
// batch input.
func (c *bedrockEmbedderClient) embedTitan(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(titanEmbeddingRequest{InputText: text})
		if err != nil {
			return nil, fmt.Errorf("marshal titan request: %w", err)
		}

		output, err := c.invoke(ctx, body)
		if err != nil {
			return nil, err
		}

		var resp titanEmbeddingResponse
		if err := json.Unmarshal(output.Body, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal titan response: %w", err)
		}
		vectors = append(vectors, resp.Embedding)
	}
	return vectors, nil
}

func (c *bedrockEmbedderClient) embedCohere(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(cohereEmbeddingRequest{
		Texts:     texts,
		InputType: "search_document",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cohere request: %w", err)
	}

	output, err := c.invoke(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp cohereEmbeddingResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal cohere response: %w", err)
	}
	return resp.Embeddings, nil
}

func (c *bedrockEmbedderClient) invoke(ctx context.Context, body []byte) (*bedrockruntime.InvokeModelOutput, error) {
	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", c.model, err)
	}
	return output, nil
}
