package document

import (
	"regexp"
	"strings"
)

// Transform rewrites page text before segmentation and fingerprinting.
// Transforms must be deterministic: the same input always yields the same
// output, or cache fingerprints stop meaning anything.
type Transform func(string) string

// Chain applies transforms left to right.
func Chain(transforms ...Transform) Transform {
	return func(text string) string {
		for _, t := range transforms {
			if t != nil {
				text = t(text)
			}
		}
		return text
	}
}

var ligatureReplacer = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬅ", "ft",
	"ﬆ", "st",
	" ", " ",
	"–", "-",
	"—", "--",
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\w+)-\s+(\w+)`)

	// Two-letter function words that PDF extraction likes to split.
	ghostSpaceRes = []struct {
		re  *regexp.Regexp
		rep string
	}{
		{regexp.MustCompile(`(?i)\bo[ \t]+ff\b`), "off"},
		{regexp.MustCompile(`(?i)\bo[ \t]+f\b`), "of"},
		{regexp.MustCompile(`(?i)\ba[ \t]+nd\b`), "and"},
		{regexp.MustCompile(`(?i)\bt[ \t]+he\b`), "the"},
		{regexp.MustCompile(`(?i)\bi[ \t]+n\b`), "in"},
		{regexp.MustCompile(`(?i)\bi[ \t]+t\b`), "it"},
		{regexp.MustCompile(`(?i)\bi[ \t]+s\b`), "is"},
		{regexp.MustCompile(`(?i)\bt[ \t]+o\b`), "to"},
	}

	afterOpenerRe  = regexp.MustCompile("([\"'([{“‘])[ \t]+")
	beforeCloserRe = regexp.MustCompile("[ \t]+([\"')}\\]”’])")

	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// RepairArtifacts fixes the text damage PDF extraction leaves behind:
// ligature codepoints, words broken across line ends by hyphenation,
// ghost spaces inside short words, and fully letter-spaced words. Line
// structure survives so paragraph breaks still reach the segmenter.
func RepairArtifacts(text string) string {
	text = ligatureReplacer.Replace(text)

	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")

	for _, g := range ghostSpaceRes {
		text = g.re.ReplaceAllString(text, g.rep)
	}

	text = afterOpenerRe.ReplaceAllString(text, "$1")
	text = beforeCloserRe.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = joinSpacedLetters(line)
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// joinSpacedLetters turns "W o r d" into "Word": a run of two or more
// adjacent single-letter tokens is a letter-spaced word, not prose.
func joinSpacedLetters(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return line
	}
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); {
		j := i
		for j < len(fields) && isSingleLetter(fields[j]) {
			j++
		}
		if j-i >= 2 {
			out = append(out, strings.Join(fields[i:j], ""))
			i = j
			continue
		}
		out = append(out, fields[i])
		i++
	}
	return strings.Join(out, " ")
}

func isSingleLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Rule replaces a written form with the way it should be spoken.
type Rule struct {
	Original     string `yaml:"original"`
	Replacement  string `yaml:"replacement"`
	WordBoundary bool   `yaml:"word_boundary"`
	MatchCase    bool   `yaml:"match_case"`
}

// Rules compiles pronunciation rules and an ignore list into a single
// Transform. Ignored phrases are removed case-insensitively before the
// rules run. Rules with an empty original are skipped.
func Rules(rules []Rule, ignore []string) Transform {
	type compiled struct {
		re  *regexp.Regexp
		rep string
	}

	var ignoreRes []*regexp.Regexp
	for _, item := range ignore {
		if item == "" {
			continue
		}
		ignoreRes = append(ignoreRes, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(item)))
	}

	var ruleRes []compiled
	for _, r := range rules {
		if r.Original == "" {
			continue
		}
		pat := regexp.QuoteMeta(r.Original)
		if r.WordBoundary {
			pat = `\b` + pat + `\b`
		}
		if !r.MatchCase {
			pat = `(?i)` + pat
		}
		ruleRes = append(ruleRes, compiled{regexp.MustCompile(pat), r.Replacement})
	}

	return func(text string) string {
		for _, re := range ignoreRes {
			text = re.ReplaceAllString(text, "")
		}
		for _, c := range ruleRes {
			text = c.re.ReplaceAllLiteralString(text, c.rep)
		}
		return text
	}
}
