package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	fetchUserAgent = "distill/1.0 (+https://github.com/distillkb/distill)"
	fetchTimeout   = 30 * time.Second
	fetchMaxBytes  = 8 << 20
)

// extractURL fetches a page and pulls out its main article text. Readability
// extraction is attempted first; if it produces nothing, the raw HTML is
// tag-stripped instead. Fetch failures yield empty text.
func (e *Extractor) extractURL(ctx context.Context, rawURL string) (string, []string) {
	body, warns := e.fetch(ctx, rawURL)
	if body == nil {
		return "", warns
	}

	parsed, err := nurl.Parse(rawURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent), warns
	}
	if err != nil {
		e.log.Debug("readability extraction failed", "url", rawURL, "error", err)
		warns = append(warns, "readability extraction failed, using raw text")
	}

	return stripTags(body), warns
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, []string) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, []string{fmt.Sprintf("invalid url: %v", err)}
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.log.Warn("url fetch failed", "url", rawURL, "error", err)
		return nil, []string{fmt.Sprintf("fetch failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.log.Warn("url fetch returned non-2xx", "url", rawURL, "status", resp.StatusCode)
		return nil, []string{fmt.Sprintf("fetch returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return nil, []string{fmt.Sprintf("read response: %v", err)}
	}
	return body, nil
}

// stripTags is the crude fallback when readability finds no article: walk
// the HTML tokens and keep text outside script/style blocks.
func stripTags(raw []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(raw))

	var sb strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}
	}
}
