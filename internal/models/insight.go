package models

import (
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Insight is one distilled, taggable, embeddable knowledge unit.
// An ingest item may own zero or more insights, one per generated section;
// manual insights exist without an owning item.
type Insight struct {
	ID           surrealmodels.RecordID  `json:"id"`
	Owner        string                  `json:"owner"`
	Title        string                  `json:"title"`
	Summary      string                  `json:"summary"` // newline-joined bullets
	Takeaway     string                  `json:"takeaway"`
	Content      string                  `json:"content"`
	Item         *surrealmodels.RecordID `json:"item,omitempty"`
	SectionIndex *int                    `json:"section_index,omitempty"`
	Embedding    []float32               `json:"embedding,omitempty"`
	Created      time.Time               `json:"created"`
	Updated      time.Time               `json:"updated"`
}

// Bullets splits the newline-joined summary back into its bullet list.
func (i Insight) Bullets() []string {
	if i.Summary == "" {
		return nil
	}
	return strings.Split(i.Summary, "\n")
}

// InsightFields carries the mutable text fields written during reconciliation.
type InsightFields struct {
	Title    string
	Summary  string
	Takeaway string
	Content  string
}

// Tag is an owner-scoped deduplicated label, unique per (owner, lowercase name).
type Tag struct {
	ID    surrealmodels.RecordID `json:"id"`
	Owner string                 `json:"owner"`
	Name  string                 `json:"name"`
}

// NormalizeTag lowercases and trims a tag name for dedup matching.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SearchResult is a transient projection of an insight plus an optional
// similarity score in [0,1]. Score is nil for keyword-only hits.
type SearchResult struct {
	Insight Insight  `json:"insight"`
	Score   *float64 `json:"score,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}
