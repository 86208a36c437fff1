package extract

import (
	"context"
	"strings"
)

const ocrPrompt = "Transcribe all text visible in this image. " +
	"Return only the transcribed text with no commentary. " +
	"If the image contains no text, describe its content in one short paragraph."

// extractImage performs OCR through the vision model. Without a configured
// model the result is empty text, never an error.
func (e *Extractor) extractImage(ctx context.Context, data []byte, mimeType string) (string, []string) {
	if e.chat == nil {
		return "", []string{"no vision model configured, image skipped"}
	}

	text, err := e.chat.CompleteVision(ctx, ocrPrompt, data, mimeType)
	if err != nil {
		e.log.Warn("image transcription failed", "model", e.chat.ModelName(), "error", err)
		return "", []string{"image transcription failed"}
	}
	return strings.TrimSpace(text), nil
}
