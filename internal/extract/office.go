package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

var slidePartRE = regexp.MustCompile(`^ppt/slides/slide\d+\.xml$`)

// extractDocx pulls the paragraph text out of word/document.xml. Runs
// within a paragraph are concatenated, paragraphs joined by newlines.
func extractDocx(data []byte) (string, []string) {
	doc, warns := readZipXML(data, "word/document.xml")
	if doc == nil {
		return "", warns
	}

	var paragraphs []string
	for _, p := range doc.FindElements("//p") {
		var runs []string
		walkTextRuns(p, func(text string) {
			runs = append(runs, text)
		})
		if para := strings.TrimSpace(strings.Join(runs, "")); para != "" {
			paragraphs = append(paragraphs, para)
		}
	}

	return strings.Join(paragraphs, "\n"), warns
}

// extractPptx walks each ppt/slides/slideN.xml part in lexical order and
// collects every text run. Runs within a slide are joined by spaces and
// slides separated by blank lines.
func extractPptx(data []byte) (string, []string) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", []string{fmt.Sprintf("pptx open failed: %v", err)}
	}

	var parts []string
	for _, f := range zr.File {
		if slidePartRE.MatchString(f.Name) {
			parts = append(parts, f.Name)
		}
	}
	sort.Strings(parts)

	var warns []string
	var slides []string
	for _, name := range parts {
		doc, err := readZipFile(zr, name)
		if err != nil {
			warns = append(warns, fmt.Sprintf("slide %s unreadable: %v", name, err))
			continue
		}

		var runs []string
		walkTextRuns(doc.Root(), func(text string) {
			runs = append(runs, text)
		})
		if slide := strings.TrimSpace(strings.Join(runs, " ")); slide != "" {
			slides = append(slides, slide)
		}
	}

	return strings.Join(slides, "\n\n"), warns
}

// walkTextRuns visits every <t> leaf below el in document order. Both
// WordprocessingML (w:t) and DrawingML (a:t) use the local tag "t" for
// text runs.
func walkTextRuns(el *etree.Element, visit func(string)) {
	if el == nil {
		return
	}
	if el.Tag == "t" && len(el.ChildElements()) == 0 {
		if text := el.Text(); text != "" {
			visit(text)
		}
		return
	}
	for _, child := range el.ChildElements() {
		walkTextRuns(child, visit)
	}
}

func readZipXML(data []byte, part string) (*etree.Document, []string) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, []string{fmt.Sprintf("archive open failed: %v", err)}
	}
	doc, err := readZipFile(zr, part)
	if err != nil {
		return nil, []string{fmt.Sprintf("part %s unreadable: %v", part, err)}
	}
	return doc, nil
}

func readZipFile(zr *zip.Reader, name string) (*etree.Document, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	return doc, nil
}
