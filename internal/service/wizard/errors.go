package wizard

import (
	"errors"
	"fmt"
)

// User-visible banner texts.
const (
	InitBanner  = "Failed to initialize chat session. Please check the API key."
	RelayBanner = "Failed to get response from the wizard. Please try again."
)

var (
	ErrEmptyInput         = errors.New("input is empty")
	ErrBusy               = errors.New("a message is already in flight")
	ErrNotReady           = errors.New("session is not ready")
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrMissingCredential  = errors.New("API key is not defined")
	ErrClosed             = errors.New("session closed")
)

// ConfigurationError means the session could not be created because local
// configuration is incomplete. No provider call was made.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Banner returns the user-visible text.
func (e *ConfigurationError) Banner() string { return InitBanner }

// InitializationError means the provider rejected session creation.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize chat session: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Banner returns the user-visible text.
func (e *InitializationError) Banner() string { return InitBanner }

// RelayError means one send/receive cycle failed. The user message stays in
// the transcript.
type RelayError struct {
	Err error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("failed to get response: %v", e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

// Banner returns the user-visible text.
func (e *RelayError) Banner() string { return RelayBanner }

// Banner extracts the user-visible text from err, or "" if it has none.
func Banner(err error) string {
	var b interface{ Banner() string }
	if errors.As(err, &b) {
		return b.Banner()
	}
	return ""
}
