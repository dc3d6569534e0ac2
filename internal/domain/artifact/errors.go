package artifact

import "errors"

var (
	// ErrConfiguration marks missing or invalid input detected before any network call.
	ErrConfiguration = errors.New("configuration error")
	// ErrIO marks a local file that could not be opened or read.
	ErrIO = errors.New("io error")
	// ErrTransport marks a failed stage, commit or write call to storage.
	ErrTransport = errors.New("transport error")
)
