// Package models defines data structures for the Distill knowledge pipeline.
package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SourceKind identifies the type of raw material an ingest item carries.
type SourceKind string

const (
	KindText  SourceKind = "TEXT"
	KindURL   SourceKind = "URL"
	KindPDF   SourceKind = "PDF"
	KindDocx  SourceKind = "DOCX"
	KindPptx  SourceKind = "PPTX"
	KindImage SourceKind = "IMAGE"
	KindAudio SourceKind = "AUDIO"
	KindFile  SourceKind = "FILE"
)

// ItemStatus is the processing state of an ingest item.
// Transitions: PENDING -> PROCESSING -> {DONE, ERROR}.
// DONE and ERROR are terminal; ERROR requires an operator reset.
type ItemStatus string

const (
	StatusPending    ItemStatus = "PENDING"
	StatusProcessing ItemStatus = "PROCESSING"
	StatusDone       ItemStatus = "DONE"
	StatusError      ItemStatus = "ERROR"
)

// Terminal reports whether the status is a terminal state.
func (s ItemStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// URLMeta describes a captured web resource.
type URLMeta struct {
	URL string `json:"url"`
}

// BlobMeta locates an uploaded binary payload in blob storage.
type BlobMeta struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// SectionSummary records one generated section on a processed item,
// so an operator inbox can show what an item produced without joining insights.
type SectionSummary struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	InsightID string `json:"insight_id"`
}

// IngestItem is one capture event awaiting or having undergone processing.
// Created PENDING by the capture entrypoint; mutated only by the coordinator.
type IngestItem struct {
	ID        surrealmodels.RecordID `json:"id"`
	Owner     string                 `json:"owner"`
	Kind      SourceKind             `json:"kind"`
	Status    ItemStatus             `json:"status"`
	RawText   *string                `json:"raw_text,omitempty"`
	URL       *URLMeta               `json:"url,omitempty"`
	Blob      *BlobMeta              `json:"blob,omitempty"`
	Sections  []SectionSummary       `json:"sections,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Created   time.Time              `json:"created"`
	Processed *time.Time             `json:"processed,omitempty"`
}

// IngestItemInput is the payload for creating an ingest item.
// Exactly one of RawText, URL, or Blob must match the declared kind;
// Validate enforces that at the write boundary.
type IngestItemInput struct {
	Owner   string
	Kind    SourceKind
	RawText *string
	URL     *URLMeta
	Blob    *BlobMeta
}

// Validate checks that the input's metadata matches its declared kind.
func (in IngestItemInput) Validate() error {
	if in.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	switch in.Kind {
	case KindText:
		if in.RawText == nil || *in.RawText == "" {
			return fmt.Errorf("TEXT capture requires raw text")
		}
	case KindURL:
		if in.URL == nil || in.URL.URL == "" {
			return fmt.Errorf("URL capture requires a url")
		}
	case KindPDF, KindDocx, KindPptx, KindImage, KindAudio, KindFile:
		if in.Blob == nil || in.Blob.Bucket == "" || in.Blob.Path == "" {
			return fmt.Errorf("%s capture requires a blob location", in.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind: %q", in.Kind)
	}
	return nil
}
