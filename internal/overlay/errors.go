package overlay

import "fmt"

// ProviderError describes a failed attempt against one upstream provider
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the request never completed
	Reason     string
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: %s (status %d)", e.Provider, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}

// Unwrap returns the underlying cause, if any
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError wrapping err
func NewProviderError(provider, reason string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Reason: reason, Err: err}
}
