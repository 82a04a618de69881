package credential

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken means the credential cannot renew itself.
	// It is a configuration problem and is reported without contacting the provider.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrMissingClientCredentials means the client id or secret needed for a refresh is absent.
	ErrMissingClientCredentials = errors.New("missing OAuth client id or client secret")

	// ErrNotLoaded means no credential has been loaded or seeded.
	ErrNotLoaded = errors.New("credential not loaded")

	// ErrLoopRunning is returned when a refresh loop is started twice.
	ErrLoopRunning = errors.New("refresh loop already started")
)

// RefreshError wraps a failed provider refresh call.
type RefreshError struct {
	Provider string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Provider, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
