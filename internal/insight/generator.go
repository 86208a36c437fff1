// Package insight distills captured text into structured insights.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/distillkb/distill/internal/llm"
)

const (
	minBullets = 3
	maxBullets = 7
	maxTags    = 10

	// DefaultMaxChars bounds the text sent to the model. This caps cost
	// and latency; it does not affect correctness of the fallbacks.
	DefaultMaxChars = 8000
)

// Section is one generated insight.
type Section struct {
	Title         string   `json:"title"`
	Bullets       []string `json:"bullets"`
	Takeaway      string   `json:"takeaway"`
	Tags          []string `json:"tags"`
	SourceExcerpt string   `json:"source_excerpt,omitempty"`
}

// Result is the full generator output.
type Result struct {
	Summary  string    `json:"summary,omitempty"`
	Sections []Section `json:"insights"`
}

// Generator produces structured insights from raw text. It degrades
// rather than fails: blank input, a missing model, and malformed model
// output all resolve to deterministic fallbacks.
type Generator struct {
	chat     llm.Chat
	maxChars int
	log      *slog.Logger
}

// NewGenerator creates a generator. chat may be nil for offline mode.
func NewGenerator(chat llm.Chat, maxChars int, log *slog.Logger) *Generator {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{chat: chat, maxChars: maxChars, log: log}
}

const systemPrompt = `You are a knowledge distillation assistant. Given raw captured text, produce concise structured insights.

Respond with ONLY a JSON object in this exact shape:
{
  "summary": "optional one-paragraph summary of the whole text",
  "insights": [
    {
      "title": "short descriptive title",
      "bullets": ["3 to 7 key points"],
      "takeaway": "the single most important conclusion",
      "tags": ["up to 10 lowercase topic tags"],
      "source_excerpt": "optional short verbatim quote"
    }
  ]
}

Split long or multi-topic text into multiple insights, one per coherent topic. Each insight must have between 3 and 7 bullets. Do not include any text outside the JSON object.`

// Generate distills text into structured insights. hint is optional user
// guidance (e.g. a capture note) passed to the model. Generate never
// returns an error.
func (g *Generator) Generate(ctx context.Context, text, hint string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fallbackResult()
	}

	if g.chat == nil {
		return localResult(trimmed)
	}

	trimmed = truncateRunes(trimmed, g.maxChars)

	user := trimmed
	if hint != "" {
		user = fmt.Sprintf("Capture note from the user: %s\n\nText:\n%s", hint, trimmed)
	}

	raw, err := g.chat.Complete(ctx, systemPrompt, user)
	if err != nil {
		g.log.Warn("insight generation failed, using local fallback",
			"model", g.chat.ModelName(), "error", err)
		return localResult(trimmed)
	}

	result, err := parseResult(raw)
	if err != nil {
		g.log.Warn("model returned unusable insight payload",
			"model", g.chat.ModelName(), "error", err)
		return fallbackResult()
	}
	return result
}

// parseResult decodes and validates the model output. Models often wrap
// JSON in markdown fences despite instructions, so those are stripped.
func parseResult(raw string) (Result, error) {
	cleaned := stripFences(raw)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return Result{}, fmt.Errorf("decode insights: %w", err)
	}

	if len(result.Sections) == 0 {
		return Result{}, fmt.Errorf("no insights in response")
	}
	for i, sec := range result.Sections {
		if strings.TrimSpace(sec.Title) == "" {
			return Result{}, fmt.Errorf("insight %d has no title", i)
		}
		if strings.TrimSpace(sec.Takeaway) == "" {
			return Result{}, fmt.Errorf("insight %d has no takeaway", i)
		}
		if len(sec.Bullets) < minBullets || len(sec.Bullets) > maxBullets {
			return Result{}, fmt.Errorf("insight %d has %d bullets, want %d..%d",
				i, len(sec.Bullets), minBullets, maxBullets)
		}
		if len(sec.Tags) > maxTags {
			result.Sections[i].Tags = sec.Tags[:maxTags]
		}
	}
	return result, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	// Some models still prepend prose. Recover the outermost object.
	if start := strings.Index(cleaned, "{"); start > 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	return strings.TrimSpace(cleaned)
}

// fallbackResult is the deterministic insight used when there is nothing
// to distill or the model output cannot be used.
func fallbackResult() Result {
	return Result{
		Sections: []Section{{
			Title:    "Captured Insight",
			Bullets:  []string{"Content was captured but could not be distilled automatically."},
			Takeaway: "Review this capture manually.",
			Tags:     []string{"unsorted"},
		}},
	}
}

// localResult derives a single insight from the text itself, without any
// model call.
func localResult(text string) Result {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	title := strings.TrimSpace(line)
	if title == "" {
		title = "Captured Insight"
	}
	title = truncateRunes(title, 120)

	excerpt := strings.TrimSpace(truncateRunes(text, 140))

	return Result{
		Sections: []Section{{
			Title:         title,
			Bullets:       []string{excerpt},
			Takeaway:      excerpt,
			Tags:          []string{"unsorted"},
			SourceExcerpt: excerpt,
		}},
	}
}

// truncateRunes cuts s after at most max bytes without splitting a UTF-8
// rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
