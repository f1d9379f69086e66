package contracts

import "errors"

var (
	// ErrEndpointNotFound is returned when an endpoint ID is not tracked in the requested direction.
	ErrEndpointNotFound = errors.New("endpoint not found")
	// ErrServiceUnavailable wraps failures of the underlying MIDI service.
	ErrServiceUnavailable = errors.New("MIDI service unavailable")
	// ErrPersistenceFailure wraps failures of the preference settings store.
	ErrPersistenceFailure = errors.New("preference persistence failure")
	// ErrUnsupportedOS is returned when no native MIDI backend exists for the running OS.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown MIDI backend")
)
