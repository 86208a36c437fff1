package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "insight", ID: "abc123"}
	s, err := RecordIDString(id)
	require.NoError(t, err)
	assert.Equal(t, "abc123", s)

	bad := surrealmodels.RecordID{Table: "insight", ID: 42}
	_, err = RecordIDString(bad)
	assert.Error(t, err)
}

func TestIngestItemInputValidate(t *testing.T) {
	text := "hello"

	tests := []struct {
		name    string
		input   IngestItemInput
		wantErr bool
	}{
		{
			name:    "text with raw text",
			input:   IngestItemInput{Owner: "u1", Kind: KindText, RawText: &text},
			wantErr: false,
		},
		{
			name:    "text without raw text",
			input:   IngestItemInput{Owner: "u1", Kind: KindText},
			wantErr: true,
		},
		{
			name:    "url with url meta",
			input:   IngestItemInput{Owner: "u1", Kind: KindURL, URL: &URLMeta{URL: "https://example.com"}},
			wantErr: false,
		},
		{
			name:    "url without url meta",
			input:   IngestItemInput{Owner: "u1", Kind: KindURL},
			wantErr: true,
		},
		{
			name:    "pdf with blob",
			input:   IngestItemInput{Owner: "u1", Kind: KindPDF, Blob: &BlobMeta{Bucket: "captures", Path: "a.pdf"}},
			wantErr: false,
		},
		{
			name:    "pdf with incomplete blob",
			input:   IngestItemInput{Owner: "u1", Kind: KindPDF, Blob: &BlobMeta{Bucket: "captures"}},
			wantErr: true,
		},
		{
			name:    "missing owner",
			input:   IngestItemInput{Kind: KindText, RawText: &text},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			input:   IngestItemInput{Owner: "u1", Kind: "TAPE"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "golang", NormalizeTag("  GoLang "))
	assert.Equal(t, "unsorted", NormalizeTag("unsorted"))
}

func TestInsightBullets(t *testing.T) {
	i := Insight{Summary: "one\ntwo\nthree"}
	assert.Equal(t, []string{"one", "two", "three"}, i.Bullets())
	assert.Nil(t, Insight{}.Bullets())
}
