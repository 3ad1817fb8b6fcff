package synth

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localreader/speech/internal/segment"
)

func TestFingerprintDeterministic(t *testing.T) {
	req := Request{Text: "Hello.", Voice: "af_bella", Speed: 1.0, Pauses: segment.DefaultPauseConfig()}

	if FingerprintFor(req) != FingerprintFor(req) {
		t.Error("identical requests produced different fingerprints")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Request{Text: "Hello.", Voice: "af_bella", Speed: 1.0, Pauses: segment.DefaultPauseConfig()}

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"text", func(r *Request) { r.Text = "Goodbye." }},
		{"voice", func(r *Request) { r.Voice = "af_sky" }},
		{"speed", func(r *Request) { r.Speed = 1.5 }},
		{"pauses", func(r *Request) { r.Pauses.Period = 900 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			if FingerprintFor(base) == FingerprintFor(changed) {
				t.Errorf("fingerprint did not change when %s changed", tt.name)
			}
		})
	}
}

func TestMockEngineDeterministic(t *testing.T) {
	e := NewMockEngine()
	defer e.Close()

	req := Request{Text: "The rain stopped.", Voice: "af_bella", Speed: 1.0}
	a, err := e.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	b, err := e.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical requests produced different audio")
	}
	if len(a) == 0 || len(a)%2 != 0 {
		t.Errorf("audio length %d is not whole 16-bit samples", len(a))
	}
}

func TestMockEngineUnspeakableTextYieldsSilence(t *testing.T) {
	e := NewMockEngine()
	defer e.Close()

	audio, err := e.Synthesize(context.Background(), Request{Text: "???", Voice: "af_bella"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, b := range audio {
		if b != 0 {
			t.Fatal("expected silence for unspeakable text")
		}
	}
	if len(audio) == 0 {
		t.Error("silence must still have nonzero duration")
	}
}

func TestMockEngineFailure(t *testing.T) {
	e := NewMockEngine()
	defer e.Close()
	cause := errors.New("voice model missing")
	e.FailWith = cause

	_, err := e.Synthesize(context.Background(), Request{Text: "Hello.", Voice: "xx_none"})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("SynthesisError does not unwrap to its cause")
	}
}

func TestMockEngineHonorsCancellation(t *testing.T) {
	e := NewMockEngine()
	defer e.Close()
	e.Delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Synthesize(ctx, Request{Text: "Hello.", Voice: "af_bella"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestMockEngineClosed(t *testing.T) {
	e := NewMockEngine()
	e.Close()

	if _, err := e.Synthesize(context.Background(), Request{Text: "Hi"}); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("error = %v, want ErrEngineClosed", err)
	}
}

func TestLanguageForVoice(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"af_bella", "en-US"},
		{"am_adam", "en-US"},
		{"bf_emma", "en-GB"},
		{"ff_siwis", "fr-FR"},
		{"zm_yunxi", "cmn"},
		{"pf_dora", "pt-BR"},
		{"unknown", "en-US"},
		{"", "en-US"},
	}

	for _, tt := range tests {
		if got := LanguageForVoice(tt.voice); got != tt.want {
			t.Errorf("LanguageForVoice(%q) = %q, want %q", tt.voice, got, tt.want)
		}
	}
}

func TestVoiceName(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"af_bella", "Bella"},
		{"bm_george", "George"},
		{"nounderscore", "nounderscore"},
	}

	for _, tt := range tests {
		if got := VoiceName(tt.voice); got != tt.want {
			t.Errorf("VoiceName(%q) = %q, want %q", tt.voice, got, tt.want)
		}
	}
}
