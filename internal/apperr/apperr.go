// Package apperr defines sentinel errors used to classify failures that the
// engine must react to specially, instead of matching on error text.
package apperr

import "errors"

var (
	// ErrCredentialsMissing means the catalogue client has no usable
	// username/password and cannot authenticate. Fatal to the open command.
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrDeviceGone means the selected audio output device is no longer
	// enumerable or failed to open. Recoverable: the engine falls back to
	// the system default.
	ErrDeviceGone = errors.New("audio device unavailable")

	// ErrStoreSchemaMismatch means the persistent store's applied-migration
	// history no longer matches the embedded migration set. The store must
	// be rebuilt from scratch.
	ErrStoreSchemaMismatch = errors.New("store schema mismatch")

	// ErrRecreateStreamRequired is returned by the Sink when a queued track
	// cannot be chained onto the live stream because its sample rate
	// differs. Not a failure: the engine schedules a rebuild.
	ErrRecreateStreamRequired = errors.New("recreate stream required")
)

// Is reports whether err wraps target anywhere in its chain. Thin wrapper
// kept so callers don't need to import errors directly in every file.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
