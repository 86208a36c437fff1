package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/models"
	"github.com/distillkb/distill/internal/parser"
	"github.com/distillkb/distill/internal/service"
	"github.com/distillkb/distill/internal/storage"
)

var captureProcess bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture raw material into the inbox",
	Long: `Capture raw material into the PENDING inbox.

Subcommands:
  text  Capture a note verbatim
  url   Capture a web page by URL
  file  Upload a local file (PDF, DOCX, PPTX, image, ...)

Captured items wait in the inbox until a worker processes them.
Pass --process to distill immediately after capturing.

Examples:
  distill capture text "SurrealDB supports HNSW indexes for vector search"
  distill capture url https://go.dev/blog/error-handling
  distill capture file ~/Downloads/design-review.pdf --process`,
}

var captureTextCmd = &cobra.Command{
	Use:   "text <content>",
	Short: "Capture a text note",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureText,
}

var captureURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Capture a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureURL,
}

var captureFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Upload and capture a local file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureFile,
}

func init() {
	captureCmd.PersistentFlags().BoolVar(&captureProcess, "process", false, "process the item immediately after capture")

	captureCmd.AddCommand(captureTextCmd)
	captureCmd.AddCommand(captureURLCmd)
	captureCmd.AddCommand(captureFileCmd)
}

func runCaptureText(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(args[0])
	if text == "" {
		return fmt.Errorf("text content is empty")
	}

	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	item, err := svc.CaptureText(ctx, cfg.Owner, text)
	if err != nil {
		return fmt.Errorf("capture text: %w", err)
	}

	return printCaptured(ctx, svc, item)
}

func runCaptureURL(cmd *cobra.Command, args []string) error {
	rawURL := strings.TrimSpace(args[0])
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("url must start with http:// or https://")
	}

	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	item, err := svc.CaptureURL(ctx, cfg.Owner, rawURL)
	if err != nil {
		return fmt.Errorf("capture url: %w", err)
	}

	return printCaptured(ctx, svc, item)
}

func runCaptureFile(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	filename := filepath.Base(path)
	kind := kindForFilename(filename)

	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	// Markdown and plain-text notes skip blob storage: strip any YAML
	// frontmatter and capture the prose directly.
	if isNoteFile(filename) {
		note := parser.ParseNote(string(data))
		item, err := svc.CaptureText(ctx, cfg.Owner, note.Text())
		if err != nil {
			return fmt.Errorf("capture note: %w", err)
		}
		return printCaptured(ctx, svc, item)
	}

	blobs, err := storage.NewFSStore(cfg.BlobRoot)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}
	blob := models.BlobMeta{
		Bucket:   "captures",
		Path:     uuid.New().String() + filepath.Ext(filename),
		Filename: filename,
	}
	if err := blobs.Upload(ctx, blob.Bucket, blob.Path, data); err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}

	item, err := svc.CaptureBlob(ctx, cfg.Owner, kind, blob)
	if err != nil {
		return fmt.Errorf("capture file: %w", err)
	}

	return printCaptured(ctx, svc, item)
}

// isNoteFile reports whether a filename looks like a text note.
func isNoteFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// kindForFilename maps a file extension to a source kind. Unknown
// extensions fall back to the generic FILE kind, which captures the
// filename only.
func kindForFilename(name string) models.SourceKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return models.KindPDF
	case ".docx":
		return models.KindDocx
	case ".pptx":
		return models.KindPptx
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return models.KindImage
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return models.KindAudio
	default:
		return models.KindFile
	}
}

func printCaptured(ctx context.Context, svc *service.Service, item *models.IngestItem) error {
	id := item.ID.String()
	fmt.Printf("Captured %s item %s (status %s)\n", item.Kind, id, item.Status)

	if !captureProcess {
		return nil
	}

	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		return fmt.Errorf("parse item id: %w", err)
	}

	result, err := svc.ProcessByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("process item: %w", err)
	}
	fmt.Printf("Processed: status %s, %d insight(s)\n", result.Status, len(result.InsightIDs))
	return nil
}
