// Package fault defines the error kinds shared across murmur components.
//
// Concrete failures wrap one of these sentinels so callers can classify them
// with errors.Is without depending on the package that produced them.
package fault

import "errors"

var (
	// ErrCapabilityUnavailable means the hotkey or audio capability cannot be acquired.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrOverflow means audio frames were lost or the recording exceeded its limit.
	ErrOverflow = errors.New("audio overflow")
	// ErrRecognition means the speech recognition engine failed or timed out.
	ErrRecognition = errors.New("recognition failed")
	// ErrSynthesis means the keystroke synthesizer could not type the text.
	ErrSynthesis = errors.New("keystroke synthesis failed")
	// ErrInstanceConflict means another daemon already holds the instance lock.
	ErrInstanceConflict = errors.New("already running")
	// ErrConfigInvalid means the configuration could not be parsed or validated.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Kind returns the first taxonomy sentinel err matches, or nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrInstanceConflict,
		ErrConfigInvalid,
		ErrCapabilityUnavailable,
		ErrOverflow,
		ErrRecognition,
		ErrSynthesis,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
