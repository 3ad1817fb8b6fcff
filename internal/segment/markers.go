package segment

import "strings"

// Dimmed header/footer wrapper emitted by the document layer. Sentence
// boundaries can fall inside a wrapped span, so units must be repaired to
// carry matched open/close markers.
const (
	dimOpen  = "[DIM]"
	dimClose = "[/DIM]"
)

// repairDimMarkers balances dim markers within a single unit. An orphaned
// close marker gets an open marker prepended, an orphaned open marker gets
// a close marker appended, and marker-only content collapses to nothing.
func repairDimMarkers(text string) string {
	opens := strings.Count(text, dimOpen)
	closes := strings.Count(text, dimClose)

	switch {
	case opens > closes:
		text += strings.Repeat(dimClose, opens-closes)
	case closes > opens:
		text = strings.Repeat(dimOpen, closes-opens) + text
	}

	// A unit that is nothing but a wrapped span keeps its markers; empty
	// spans are dropped entirely.
	if strings.TrimSpace(stripDim(text)) == "" && opens+closes > 0 {
		inner := text
		inner = strings.ReplaceAll(inner, dimOpen, "")
		inner = strings.ReplaceAll(inner, dimClose, "")
		if strings.TrimSpace(inner) == "" {
			return ""
		}
	}
	return text
}

// stripDim removes dimmed spans entirely. Dimmed text is decoration
// (running headers, page numbers) and is never synthesized.
func stripDim(text string) string {
	for {
		start := strings.Index(text, dimOpen)
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], dimClose)
		if end < 0 {
			text = text[:start]
			break
		}
		text = text[:start] + text[start+end+len(dimClose):]
	}
	text = strings.ReplaceAll(text, dimClose, "")
	return strings.TrimSpace(text)
}

// SpeakableText returns the text the synthesis engine should voice for a
// unit: dimmed spans removed, whitespace collapsed.
func SpeakableText(u Unit) string {
	return strings.Join(strings.Fields(stripDim(u.Text)), " ")
}
