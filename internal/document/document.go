// Package document supplies page text to the playback pipeline. A
// Provider is the only thing the rest of the code knows about documents;
// the in-memory Document here backs the CLI and the tests.
package document

import "strings"

// Provider hands out the text of a single page. The second return is
// false when the document or the page does not exist. An existing page
// with no speakable content returns ("", true); callers treat that as
// "nothing to read here, move on".
type Provider interface {
	PageText(docID string, pageIndex int) (string, bool)
}

// Document is an in-memory Provider for a single document. Page text is
// passed through Transform, when set, before it is handed out, so every
// consumer of a page sees the same repaired text.
type Document struct {
	ID        string
	Transform Transform

	pages []string
}

func NewDocument(id string, pages []string) *Document {
	return &Document{ID: id, pages: pages}
}

func (d *Document) PageCount() int { return len(d.pages) }

// PageText implements Provider.
func (d *Document) PageText(docID string, pageIndex int) (string, bool) {
	if docID != d.ID || pageIndex < 0 || pageIndex >= len(d.pages) {
		return "", false
	}
	text := d.pages[pageIndex]
	if d.Transform != nil {
		text = d.Transform(text)
	}
	return text, true
}

// PagesFromText splits extracted text into pages on form feeds, the page
// separator most text extractors emit. Text without a form feed is a
// single page. Page-edge whitespace is trimmed; interior line structure
// is kept for the segmenter.
func PagesFromText(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\f")
	pages := make([]string, 0, len(raw))
	for _, p := range raw {
		pages = append(pages, strings.TrimSpace(p))
	}
	return pages
}
