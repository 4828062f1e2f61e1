// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// DILIGENCIAS_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set DILIGENCIAS_SECRET_KEY")

// CredentialStore defines the driven port for the process-wide key/value
// store that holds the session credential across restarts. Writes are
// last-writer-wins; there is no cross-key transaction.
type CredentialStore interface {
	// Get returns the value stored under key, or ("", nil) if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored pair ordered by key.
	List(ctx context.Context) ([]model.StoredValue, error)
}
