package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/distillkb/distill/internal/models"
)

func TestKindForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     models.SourceKind
	}{
		{"report.pdf", models.KindPDF},
		{"Report.PDF", models.KindPDF},
		{"notes.docx", models.KindDocx},
		{"deck.pptx", models.KindPptx},
		{"photo.jpg", models.KindImage},
		{"diagram.png", models.KindImage},
		{"standup.mp3", models.KindAudio},
		{"data.csv", models.KindFile},
		{"README", models.KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, kindForFilename(tt.filename))
		})
	}
}

func TestIsNoteFile(t *testing.T) {
	assert.True(t, isNoteFile("notes.md"))
	assert.True(t, isNoteFile("NOTES.MD"))
	assert.True(t, isNoteFile("todo.txt"))
	assert.False(t, isNoteFile("report.pdf"))
	assert.False(t, isNoteFile("README"))
}

func TestBareID(t *testing.T) {
	assert.Equal(t, "abc-123", bareID("ingest_item:abc-123", "ingest_item"))
	assert.Equal(t, "abc-123", bareID("abc-123", "ingest_item"))
	assert.Equal(t, "insight:abc", bareID("insight:abc", "ingest_item"))
}

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"init", "capture", "process", "worker", "search", "related", "inbox", "reset-stuck", "stats"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}
