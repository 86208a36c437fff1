// Package extract turns captured artifacts into plain text.
//
// Extraction is best effort. Every failure mode degrades to empty text
// with a warning rather than an error, because downstream insight
// generation has a defined fallback for empty content.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/distillkb/distill/internal/llm"
	"github.com/distillkb/distill/internal/models"
	"github.com/distillkb/distill/internal/storage"
)

// Extractor dispatches content extraction by artifact kind.
type Extractor struct {
	chat  llm.Chat
	blobs storage.BlobStore
	log   *slog.Logger
}

// New creates an extractor. chat may be nil (no vision OCR) and blobs may
// be nil (binary kinds degrade to empty text).
func New(chat llm.Chat, blobs storage.BlobStore, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{chat: chat, blobs: blobs, log: log}
}

// Extract returns the plain text for an ingest item plus any warnings
// accumulated along the way. It never returns an error: a failed
// extraction yields empty text.
func (e *Extractor) Extract(ctx context.Context, item *models.IngestItem) (string, []string) {
	switch item.Kind {
	case models.KindText:
		if item.RawText != nil {
			return *item.RawText, nil
		}
		return "", []string{"text capture has no content"}

	case models.KindURL:
		if item.URL == nil || item.URL.URL == "" {
			return "", []string{"url capture has no url"}
		}
		return e.extractURL(ctx, item.URL.URL)

	case models.KindPDF:
		data, warns := e.download(ctx, item)
		if data == nil {
			return "", warns
		}
		text, pdfWarns := extractPDF(data)
		return text, append(warns, pdfWarns...)

	case models.KindDocx:
		data, warns := e.download(ctx, item)
		if data == nil {
			return "", warns
		}
		text, docWarns := extractDocx(data)
		return text, append(warns, docWarns...)

	case models.KindPptx:
		data, warns := e.download(ctx, item)
		if data == nil {
			return "", warns
		}
		text, pptWarns := extractPptx(data)
		return text, append(warns, pptWarns...)

	case models.KindImage:
		data, warns := e.download(ctx, item)
		if data == nil {
			return "", warns
		}
		text, imgWarns := e.extractImage(ctx, data, blobContentType(item))
		return text, append(warns, imgWarns...)

	case models.KindAudio:
		// Transcription is not implemented. Deterministic empty text so
		// the pipeline finishes instead of erroring.
		return "", []string{"audio transcription not supported"}

	case models.KindFile:
		return filePlaceholder(item), nil

	default:
		return "", []string{fmt.Sprintf("unsupported capture kind %q", item.Kind)}
	}
}

// download fetches the item's binary payload. A missing blob reference or
// a storage failure yields nil data and a warning.
func (e *Extractor) download(ctx context.Context, item *models.IngestItem) ([]byte, []string) {
	if item.Blob == nil {
		return nil, []string{"capture has no stored payload"}
	}
	if e.blobs == nil {
		return nil, []string{"no blob storage configured"}
	}

	data, err := e.blobs.Download(ctx, item.Blob.Bucket, item.Blob.Path)
	if err != nil {
		e.log.Warn("blob download failed",
			"item", item.ID.String(),
			"bucket", item.Blob.Bucket,
			"path", item.Blob.Path,
			"error", err)
		return nil, []string{fmt.Sprintf("payload download failed: %v", err)}
	}
	return data, nil
}

// filePlaceholder names an otherwise unsupported file so the capture is
// still searchable by filename.
func filePlaceholder(item *models.IngestItem) string {
	name := "unknown file"
	if item.Blob != nil && item.Blob.Filename != "" {
		name = item.Blob.Filename
	}
	return fmt.Sprintf("Captured file: %s", name)
}

func blobContentType(item *models.IngestItem) string {
	if item.Blob != nil && item.Blob.ContentType != "" {
		return item.Blob.ContentType
	}
	return "image/png"
}
