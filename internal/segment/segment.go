// Package segment splits normalized page text into speakable units and
// assigns each unit a context-sensitive trailing pause.
package segment

import (
	"strings"
	"time"
	"unicode"

	"github.com/rivo/uniseg"
)

// BreakKind describes what follows a unit in the source text.
type BreakKind int

const (
	// BreakNone means the next unit follows in the same flow of text.
	BreakNone BreakKind = iota
	// BreakSoft means a single line break follows the unit.
	BreakSoft
	// BreakParagraph means a structural paragraph break follows the unit.
	BreakParagraph
)

// Unit is a single speakable fragment derived from page text.
type Unit struct {
	PageIndex int
	Index     int

	// Text is the speakable text with edge quotes trimmed and dim
	// markers balanced. Never empty.
	Text string

	// Raw is the unit as it appeared in the page, quotes and trailing
	// punctuation included. Used for dialogue/header classification.
	Raw string

	// TrailingRun is the run of terminal punctuation that closed the
	// unit, empty for bare lines such as headers.
	TrailingRun string

	// Break records what separated this unit from the next.
	Break BreakKind

	// Pause is the silence to insert after the unit. Assigned by the
	// PauseClassifier, zero until then.
	Pause time.Duration
}

// Segmenter locates sentence boundaries in normalized page text. Boundaries
// come from Unicode sentence segmentation, post-filtered so that known
// abbreviations ("Mr.", "Dr.", "etc.") never end a unit.
type Segmenter struct {
	abbreviations map[string]struct{}
}

// NewSegmenter returns a Segmenter with the default abbreviation set.
func NewSegmenter() *Segmenter {
	return &Segmenter{abbreviations: defaultAbbreviations()}
}

// Segment splits page text into ordered units. Empty or whitespace-only
// input yields an empty slice; callers treat that as "nothing to read".
// The result is deterministic for identical input.
func (s *Segmenter) Segment(pageIndex int, text string) []Unit {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var units []Unit
	for _, para := range splitBlocks(text) {
		first := len(units)
		for _, raw := range s.splitSentences(para.text) {
			u, ok := s.makeUnit(raw)
			if !ok {
				continue
			}
			u.PageIndex = pageIndex
			u.Break = BreakNone
			units = append(units, u)
		}
		// A block may contribute nothing (marker-only or pure
		// punctuation); its break must not restamp the previous block's
		// last unit.
		if len(units) > first {
			units[len(units)-1].Break = para.followedBy
		}
	}

	for i := range units {
		units[i].Index = i
	}
	return units
}

// block is a run of text between line breaks, tagged with the kind of
// break that followed it.
type block struct {
	text       string
	followedBy BreakKind
}

// splitBlocks cuts page text at line breaks. A single newline is a soft
// break, a blank line a paragraph break. The final block carries a
// paragraph break so that trailing headers still get audible separation.
func splitBlocks(text string) []block {
	var blocks []block
	rest := text
	for rest != "" {
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			blocks = append(blocks, block{text: rest, followedBy: BreakParagraph})
			break
		}
		line := rest[:idx]
		rest = rest[idx+1:]

		kind := BreakSoft
		for len(rest) > 0 && rest[0] == '\n' {
			kind = BreakParagraph
			rest = rest[1:]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if rest == "" {
			kind = BreakParagraph
		}
		blocks = append(blocks, block{text: line, followedBy: kind})
	}
	return blocks
}

// splitSentences yields raw sentence strings for one block, merging any
// boundary that falls immediately after a known abbreviation.
func (s *Segmenter) splitSentences(text string) []string {
	var parts []string
	state := -1
	rest := text
	for rest != "" {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		if sentence == "" {
			break
		}
		if n := len(parts); n > 0 && s.suppressBreakAfter(parts[n-1]) {
			parts[n-1] += sentence
			continue
		}
		parts = append(parts, sentence)
	}
	return parts
}

// suppressBreakAfter reports whether the sentence ends with an
// abbreviation token, in which case the following boundary is spurious.
func (s *Segmenter) suppressBreakAfter(sentence string) bool {
	trimmed := strings.TrimRightFunc(sentence, unicode.IsSpace)
	if !strings.HasSuffix(trimmed, ".") {
		return false
	}
	word := lastWord(trimmed)
	word = strings.ToLower(strings.TrimSuffix(word, "."))
	if word == "" {
		return false
	}
	if _, ok := s.abbreviations[word]; ok {
		return true
	}
	// Multi-part abbreviations such as "u.s." or "ph.d".
	if strings.Contains(word, ".") {
		return true
	}
	return false
}

func lastWord(text string) string {
	end := len(text)
	start := end
	for start > 0 {
		r := rune(text[start-1])
		if unicode.IsSpace(r) {
			break
		}
		start--
	}
	return text[start:end]
}

// makeUnit normalizes one raw sentence into a Unit. Returns false for
// fragments with nothing speakable in them.
func (s *Segmenter) makeUnit(raw string) (Unit, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unit{}, false
	}

	display := repairDimMarkers(raw)
	display = trimEdgeQuotes(display)
	display = strings.TrimSpace(display)
	// Dimmed spans are decoration; a unit is only worth keeping when
	// something speakable remains outside them.
	if display == "" || !hasSpeakable(stripDim(display)) {
		return Unit{}, false
	}

	return Unit{
		Text:        display,
		Raw:         raw,
		TrailingRun: trailingPunctuationRun(raw),
	}, true
}

// trailingPunctuationRun returns the run of terminal punctuation that ends
// the text, ignoring closing quotes and brackets.
func trailingPunctuationRun(text string) string {
	runes := []rune(strings.TrimRightFunc(text, unicode.IsSpace))
	end := len(runes)
	for end > 0 && isClosingMark(runes[end-1]) {
		end--
	}
	start := end
	for start > 0 && isTerminalPunct(runes[start-1]) {
		start--
	}
	return string(runes[start:end])
}

func isTerminalPunct(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ':', ';', '…', '。', '，', '！', '？', '：', '；', '、':
		return true
	}
	return false
}

func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}

// trimEdgeQuotes removes quote characters from the edges of a unit while
// preserving any internal quotes.
func trimEdgeQuotes(text string) string {
	const quotes = "\"'“”‘’«»"
	return strings.Trim(text, quotes)
}

// hasSpeakable reports whether the text contains at least one character
// the synthesis engine can voice. Pure punctuation is not speakable.
func hasSpeakable(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func defaultAbbreviations() map[string]struct{} {
	words := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st",
		"i.e", "e.g", "etc", "vs", "cf", "al", "inc", "ltd", "co", "corp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept",
		"oct", "nov", "dec",
		"vol", "vols", "no", "nos", "pg", "pp", "ed", "eds",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a", "ph.d", "m.d",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
