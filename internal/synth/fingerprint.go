package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/localreader/speech/internal/segment"
)

// Fingerprint identifies one synthesis result. Two requests with the same
// fingerprint must be treated as producing identical audio, which is what
// lets the caches guarantee at-most-one synthesis per unit.
type Fingerprint string

// FingerprintFor derives the cache key for a request. The derivation is
// deterministic: a canonical JSON encoding of the request parameters plus
// a hash of the pause table, digested with SHA-256.
func FingerprintFor(req Request) Fingerprint {
	payload := struct {
		Text       string  `json:"text"`
		Voice      string  `json:"voice"`
		Language   string  `json:"language"`
		Speed      float64 `json:"speed"`
		PausesHash string  `json:"pauses"`
	}{
		Text:       req.Text,
		Voice:      req.Voice,
		Language:   LanguageForVoice(req.Voice),
		Speed:      req.Speed,
		PausesHash: pauseHash(req.Pauses),
	}

	// Struct fields encode in declaration order, so the encoding is
	// canonical without sorting.
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of plain strings and floats cannot fail.
		panic(fmt.Sprintf("fingerprint encode: %v", err))
	}

	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func pauseHash(p segment.PauseConfig) string {
	data, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("pause table encode: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
