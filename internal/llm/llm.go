// Package llm holds the contract shared by the text-generation providers used
// for action-item extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by provider constructors when no key is configured.
var ErrMissingAPIKey = errors.New("llm api key is required")

// Provider generates a completion for a system instruction and one user turn.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// APIError is a non-2xx response from a provider. Error returns the provider's
// own message unchanged when one was supplied.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s api error %d", e.Provider, e.StatusCode)
}
