package segment

import (
	"fmt"
	"time"
)

// PauseConfig holds per-punctuation pause durations in milliseconds. All
// values are user-configurable and must stay within [0, 2000].
type PauseConfig struct {
	Comma       int `yaml:"comma" env:"SPEECH_PAUSE_COMMA"`
	Period      int `yaml:"period" env:"SPEECH_PAUSE_PERIOD"`
	Question    int `yaml:"question" env:"SPEECH_PAUSE_QUESTION"`
	Exclamation int `yaml:"exclamation" env:"SPEECH_PAUSE_EXCLAMATION"`
	Colon       int `yaml:"colon" env:"SPEECH_PAUSE_COLON"`
	Semicolon   int `yaml:"semicolon" env:"SPEECH_PAUSE_SEMICOLON"`

	// Newline applies when a unit ends at a soft line break without
	// trailing punctuation.
	Newline int `yaml:"newline" env:"SPEECH_PAUSE_NEWLINE"`

	// SoftPause applies when a punctuationless unit precedes a
	// structural paragraph break (a bare title line, for instance).
	SoftPause int `yaml:"soft_pause" env:"SPEECH_PAUSE_SOFT"`

	// Context-rule durations.
	SpeakerChange     int `yaml:"speaker_change" env:"SPEECH_PAUSE_SPEAKER_CHANGE"`
	ActionBeat        int `yaml:"action_beat" env:"SPEECH_PAUSE_ACTION_BEAT"`
	ChapterTransition int `yaml:"chapter_transition" env:"SPEECH_PAUSE_CHAPTER"`
}

// DefaultPauseConfig returns the stock pause table.
func DefaultPauseConfig() PauseConfig {
	return PauseConfig{
		Comma:             300,
		Period:            600,
		Question:          600,
		Exclamation:       600,
		Colon:             400,
		Semicolon:         400,
		Newline:           800,
		SoftPause:         300,
		SpeakerChange:     400,
		ActionBeat:        100,
		ChapterTransition: 1000,
	}
}

// Validate checks every duration against the allowed range.
func (c PauseConfig) Validate() error {
	fields := map[string]int{
		"comma":              c.Comma,
		"period":             c.Period,
		"question":           c.Question,
		"exclamation":        c.Exclamation,
		"colon":              c.Colon,
		"semicolon":          c.Semicolon,
		"newline":            c.Newline,
		"soft_pause":         c.SoftPause,
		"speaker_change":     c.SpeakerChange,
		"action_beat":        c.ActionBeat,
		"chapter_transition": c.ChapterTransition,
	}
	for name, ms := range fields {
		if ms < 0 || ms > 2000 {
			return fmt.Errorf("pause %s: %dms outside allowed range 0-2000", name, ms)
		}
	}
	return nil
}

// PauseClassifier assigns trailing pauses to units. Context rules (headers,
// dialogue turns) win over the punctuation table; the table wins over the
// structural defaults.
type PauseClassifier struct {
	cfg        PauseConfig
	classifier ContentClassifier
}

// NewPauseClassifier builds a classifier from a pause table and a content
// classifier. A nil classifier disables the context rules.
func NewPauseClassifier(cfg PauseConfig, classifier ContentClassifier) *PauseClassifier {
	return &PauseClassifier{cfg: cfg, classifier: classifier}
}

// Config returns the active pause table.
func (p *PauseClassifier) Config() PauseConfig {
	return p.cfg
}

// Apply assigns Pause to every unit in place, consulting each unit's
// successor for the context rules.
func (p *PauseClassifier) Apply(units []Unit) {
	for i := range units {
		var next *Unit
		if i+1 < len(units) {
			next = &units[i+1]
		}
		units[i].Pause = p.pauseFor(&units[i], next)
	}
}

func (p *PauseClassifier) pauseFor(u, next *Unit) time.Duration {
	if d, ok := p.contextPause(u, next); ok {
		return d
	}

	if u.TrailingRun != "" {
		d := p.PauseForRun(u.TrailingRun)
		// A structural break never stacks on top of a punctuation
		// pause.
		if d > 0 {
			return d
		}
	}

	switch u.Break {
	case BreakParagraph:
		return ms(p.cfg.SoftPause)
	case BreakSoft:
		return ms(p.cfg.Newline)
	default:
		return 0
	}
}

// contextPause applies the dialogue/header rules. ok is false when no
// context rule fires and the punctuation table should decide.
func (p *PauseClassifier) contextPause(u, next *Unit) (time.Duration, bool) {
	if p.classifier == nil {
		return 0, false
	}
	kind := p.classifier.Classify(u.Raw)
	if kind == KindHeader {
		return ms(p.cfg.ChapterTransition), true
	}
	if kind != KindDialogue || next == nil {
		return 0, false
	}
	switch p.classifier.Classify(next.Raw) {
	case KindDialogue:
		return ms(p.cfg.SpeakerChange), true
	case KindNarration:
		return ms(p.cfg.ActionBeat), true
	}
	return 0, false
}

// PauseForRun maps a run of terminal punctuation to a duration. The run
// classifies by its last character only, so "...!" reads as an exclamation
// and "??" as one question; a run is never split into per-character
// pauses. Unknown characters, including punctuation-only junk input,
// classify to zero rather than failing.
func (p *PauseClassifier) PauseForRun(run string) time.Duration {
	runes := []rune(run)
	if len(runes) == 0 {
		return 0
	}
	switch runes[len(runes)-1] {
	case ',', '，', '、':
		return ms(p.cfg.Comma)
	case '.', '。', '…':
		return ms(p.cfg.Period)
	case '?', '？':
		return ms(p.cfg.Question)
	case '!', '！':
		return ms(p.cfg.Exclamation)
	case ':', '：':
		return ms(p.cfg.Colon)
	case ';', '；':
		return ms(p.cfg.Semicolon)
	default:
		return 0
	}
}

func ms(v int) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(v) * time.Millisecond
}
