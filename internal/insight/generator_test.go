package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat returns a canned response or error.
type fakeChat struct {
	response string
	err      error
	lastUser string
}

func (f *fakeChat) Complete(ctx context.Context, system, user string) (string, error) {
	f.lastUser = user
	return f.response, f.err
}

func (f *fakeChat) CompleteVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeChat) ModelName() string { return "fake" }

const validPayload = `{
	"summary": "A summary.",
	"insights": [{
		"title": "Key Finding",
		"bullets": ["one", "two", "three"],
		"takeaway": "The takeaway.",
		"tags": ["testing", "Go"]
	}]
}`

func TestGenerateBlankText(t *testing.T) {
	g := NewGenerator(&fakeChat{response: validPayload}, 0, nil)

	result := g.Generate(context.Background(), "   \n\t  ", "")
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "Captured Insight", result.Sections[0].Title)
	assert.Equal(t, []string{"unsorted"}, result.Sections[0].Tags)
}

func TestGenerateOffline(t *testing.T) {
	g := NewGenerator(nil, 0, nil)

	text := "Meeting notes about launch\n" + strings.Repeat("detail ", 50)
	result := g.Generate(context.Background(), text, "")
	require.Len(t, result.Sections, 1)

	sec := result.Sections[0]
	assert.Equal(t, "Meeting notes about launch", sec.Title)
	require.Len(t, sec.Bullets, 1)
	assert.LessOrEqual(t, len(sec.Bullets[0]), 140)
	assert.Equal(t, []string{"unsorted"}, sec.Tags)

	// The takeaway carries the truncated text itself, so an offline
	// capture still surfaces its content in search and listings.
	excerpt := strings.TrimSpace(text[:140])
	assert.Equal(t, excerpt, sec.Takeaway)
	assert.Equal(t, excerpt, sec.Bullets[0])
	assert.Equal(t, excerpt, sec.SourceExcerpt)
}

func TestGenerateOfflineMultibyteText(t *testing.T) {
	g := NewGenerator(nil, 0, nil)

	text := "Überblick über den Start\n" + strings.Repeat("größere Änderungen ", 20)
	result := g.Generate(context.Background(), text, "")
	require.Len(t, result.Sections, 1)

	sec := result.Sections[0]
	assert.True(t, utf8.ValidString(sec.Takeaway))
	assert.True(t, utf8.ValidString(sec.Bullets[0]))
	assert.LessOrEqual(t, len(sec.Takeaway), 140)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "abc", 10, "abc"},
		{"exact max", "abcd", 4, "abcd"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"cut inside rune backs up", "aäb", 2, "a"},
		{"multibyte kept when it fits", "aäb", 3, "aä"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestGenerateValidResponse(t *testing.T) {
	chat := &fakeChat{response: validPayload}
	g := NewGenerator(chat, 0, nil)

	result := g.Generate(context.Background(), "some text", "focus on launch risk")
	assert.Equal(t, "A summary.", result.Summary)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "Key Finding", result.Sections[0].Title)
	assert.Contains(t, chat.lastUser, "focus on launch risk")
}

func TestGenerateFencedResponse(t *testing.T) {
	g := NewGenerator(&fakeChat{response: "```json\n" + validPayload + "\n```"}, 0, nil)

	result := g.Generate(context.Background(), "some text", "")
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "Key Finding", result.Sections[0].Title)
}

func TestGenerateInvalidResponseFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I cannot help with that."},
		{"empty insights", `{"insights": []}`},
		{"missing title", `{"insights": [{"title": "", "bullets": ["a","b","c"], "takeaway": "t", "tags": []}]}`},
		{"too few bullets", `{"insights": [{"title": "T", "bullets": ["a"], "takeaway": "t", "tags": []}]}`},
		{"too many bullets", `{"insights": [{"title": "T", "bullets": ["1","2","3","4","5","6","7","8"], "takeaway": "t", "tags": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&fakeChat{response: tt.response}, 0, nil)
			result := g.Generate(context.Background(), "some text", "")
			require.Len(t, result.Sections, 1)
			assert.Equal(t, "Captured Insight", result.Sections[0].Title)
		})
	}
}

func TestGenerateModelErrorUsesLocalFallback(t *testing.T) {
	g := NewGenerator(&fakeChat{err: errors.New("backend down")}, 0, nil)

	result := g.Generate(context.Background(), "First line here\nmore", "")
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "First line here", result.Sections[0].Title)
}

func TestGenerateTruncatesInput(t *testing.T) {
	chat := &fakeChat{response: validPayload}
	g := NewGenerator(chat, 100, nil)

	g.Generate(context.Background(), strings.Repeat("x", 500), "")
	assert.LessOrEqual(t, len(chat.lastUser), 100)
}

func TestParseResultClampsTags(t *testing.T) {
	payload := `{"insights": [{"title": "T", "bullets": ["a","b","c"], "takeaway": "t",
		"tags": ["1","2","3","4","5","6","7","8","9","10","11","12"]}]}`

	result, err := parseResult(payload)
	require.NoError(t, err)
	assert.Len(t, result.Sections[0].Tags, 10)
}
