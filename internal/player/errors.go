package player

import "errors"

var (
	// ErrControllerClosed is returned after Close.
	ErrControllerClosed = errors.New("playback controller is closed")

	// ErrNoDocument is returned when playback is requested before a
	// document has been loaded.
	ErrNoDocument = errors.New("no document loaded")

	// ErrNothingToRead means no page at or after the requested position
	// has any speakable units.
	ErrNothingToRead = errors.New("nothing to read")

	// ErrNoSuchUnit is returned for a jump target that does not exist.
	ErrNoSuchUnit = errors.New("no such unit")
)
