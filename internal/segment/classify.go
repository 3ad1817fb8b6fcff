package segment

import "regexp"

// ContentKind is the coarse classification of a unit used by the pause
// rules. The boundaries between dialogue and narration are heuristic;
// classifiers are pluggable so a better heuristic can be swapped in.
type ContentKind int

const (
	// KindUnknown means the classifier could not decide; pause rules
	// fall back to the punctuation table.
	KindUnknown ContentKind = iota
	// KindNarration is prose without quoted speech.
	KindNarration
	// KindDialogue is quoted speech, attributed or standalone.
	KindDialogue
	// KindHeader is a chapter/section title line.
	KindHeader
)

// String returns the lowercase name of the kind.
func (k ContentKind) String() string {
	switch k {
	case KindNarration:
		return "narration"
	case KindDialogue:
		return "dialogue"
	case KindHeader:
		return "header"
	default:
		return "unknown"
	}
}

// ContentClassifier decides what kind of content a raw unit is.
type ContentClassifier interface {
	Classify(raw string) ContentKind
}

// PatternClassifier classifies units by quote and header patterns. It
// mirrors how web-novel prose is usually laid out: standalone dialogue is
// a fully quoted line ending in terminal punctuation, attributed dialogue
// contains a quoted span, and headers open with a chapter-style keyword.
type PatternClassifier struct {
	standalone *regexp.Regexp
	attributed *regexp.Regexp
	header     *regexp.Regexp
}

// NewPatternClassifier returns the default classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{
		standalone: regexp.MustCompile(`^["\x{201C}\x{201D}\x{2018}\x{2019}].*["\x{201C}\x{201D}\x{2018}\x{2019}][.!?\x{2026}]*$`),
		attributed: regexp.MustCompile(`["\x{201C}\x{201D}\x{2018}\x{2019}].*["\x{201C}\x{201D}\x{2018}\x{2019}]`),
		header:     regexp.MustCompile(`(?i)^(Chapter|Ch\.|Arc|Volume|Vol\.|Part|Book)\s*[\dIVXLC\w]+`),
	}
}

// Classify implements ContentClassifier.
func (c *PatternClassifier) Classify(raw string) ContentKind {
	if raw == "" {
		return KindUnknown
	}
	if c.header.MatchString(raw) {
		return KindHeader
	}
	if c.standalone.MatchString(raw) {
		return KindDialogue
	}
	if c.attributed.MatchString(raw) {
		return KindDialogue
	}
	return KindNarration
}
