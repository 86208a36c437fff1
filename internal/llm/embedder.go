package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/distillkb/distill/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder is the embedding capability. Embed never fails: backend errors
// and empty input both yield an empty vector, which callers treat as
// "no embedding". Non-empty vectors always have exactly Dimension elements;
// that stored dimension is the invariant the vector-distance operator
// depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	Dimension() int
}

// NoEmbedder is the offline capability: every Embed returns an empty vector.
type NoEmbedder struct {
	Dim int
}

func (n NoEmbedder) Embed(ctx context.Context, text string) []float32 { return nil }
func (n NoEmbedder) Dimension() int                                   { return n.Dim }

// backendEmbedder wraps a langchaingo embedder with dimension clamping and
// error swallowing.
type backendEmbedder struct {
	model     embeddings.Embedder
	dimension int
	modelName string
}

// NewEmbedder creates the embedding capability from configuration.
// An unconfigured provider yields a NoEmbedder, not an error.
func NewEmbedder(ctx context.Context, cfg config.Config) (Embedder, error) {
	var model embeddings.Embedder
	var err error

	switch cfg.EmbedProvider {
	case config.ProviderNone:
		return NoEmbedder{Dim: cfg.EmbedDimension}, nil

	case config.ProviderOllama:
		llm, ollamaErr := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if ollamaErr != nil {
			return nil, fmt.Errorf("create ollama client: %w", ollamaErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		llm, openaiErr := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if openaiErr != nil {
			return nil, fmt.Errorf("create openai client: %w", openaiErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	case config.ProviderAnthropic:
		// Anthropic has no native embedding API; use Voyage AI, its
		// recommended embedding partner.
		return NewVoyageEmbedder(cfg.AnthropicAPIKey, cfg.EmbedModel, cfg.EmbedDimension)

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx)
		if awsErr != nil {
			return nil, fmt.Errorf("load AWS config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = embeddings.NewEmbedder(newBedrockEmbedderClient(client, cfg.EmbedModel))
		if err != nil {
			return nil, fmt.Errorf("create bedrock embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}

	return &backendEmbedder{
		model:     model,
		dimension: cfg.EmbedDimension,
		modelName: cfg.EmbedModel,
	}, nil
}

// Embed generates an embedding vector clamped to the configured dimension.
func (e *backendEmbedder) Embed(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, []string{text})
	duration := time.Since(start)

	if err != nil {
		slog.Warn("embedding failed", "model", e.modelName, "text_len", len(text), "duration_ms", duration.Milliseconds(), "error", err)
		return nil
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		slog.Warn("no embedding returned", "model", e.modelName)
		return nil
	}

	slog.Debug("embedding complete", "model", e.modelName, "text_len", len(text), "duration_ms", duration.Milliseconds())
	return ClampDimension(vectors[0], e.dimension)
}

// Dimension returns the configured embedding dimension.
func (e *backendEmbedder) Dimension() int {
	return e.dimension
}

// ClampDimension forces a vector to exactly dim elements: longer vectors
// are truncated, shorter ones zero-padded. Empty input stays empty.
func ClampDimension(vec []float32, dim int) []float32 {
	if len(vec) == 0 || dim <= 0 {
		return nil
	}
	if len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	padded := make([]float32, dim)
	copy(padded, vec)
	return padded
}
