// Package parser handles Markdown notes captured from the filesystem.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a parsed Markdown note. Frontmatter is stripped from the body
// so the distillation pipeline sees prose, not YAML.
type Note struct {
	// Frontmatter metadata (from YAML)
	Frontmatter map[string]any

	// Title extracted from frontmatter or first h1
	Title string

	// Body is the note content after frontmatter
	Body string
}

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ParseNote parses a Markdown note. Malformed frontmatter is ignored
// rather than rejected; a capture never fails on a sloppy note.
func ParseNote(content string) *Note {
	note := &Note{
		Frontmatter: make(map[string]any),
		Body:        content,
	}

	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx > 0 {
			frontmatterYAML := content[4 : 4+endIdx]
			note.Body = strings.TrimPrefix(content[4+endIdx+4:], "\n")

			if err := yaml.Unmarshal([]byte(frontmatterYAML), &note.Frontmatter); err != nil {
				note.Frontmatter = make(map[string]any)
			}
		}
	}

	note.Title = extractTitle(note.Frontmatter, note.Body)

	return note
}

// extractTitle gets the title from frontmatter or the first h1.
func extractTitle(fm map[string]any, body string) string {
	if title, ok := fm["title"].(string); ok && title != "" {
		return title
	}
	if name, ok := fm["name"].(string); ok && name != "" {
		return name
	}

	if match := h1Regex.FindStringSubmatch(body); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}

	return ""
}

// Tags returns the frontmatter tag list, if any.
func (n *Note) Tags() []string {
	switch v := n.Frontmatter["tags"].(type) {
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	case []string:
		return v
	case string:
		return []string{v}
	}
	return nil
}

// Text returns the capture payload for the note: the title as a heading
// line when the body does not already start with one, then the body.
func (n *Note) Text() string {
	body := strings.TrimSpace(n.Body)
	if n.Title == "" || h1Regex.MatchString(body) {
		return body
	}
	return "# " + n.Title + "\n\n" + body
}
