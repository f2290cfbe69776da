package secrets

import (
	"context"
	"errors"

	"github.com/candelahq/cadence/pkg/schema"
)

// Vault resolves provider credentials (API keys) at runtime.
// Values are resolved in-memory only and never logged.
type Vault interface {
	Resolve(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// SecretStore is the minimal persistence interface needed by the vault.
// Satisfied by store.Store.
type SecretStore interface {
	StoreSecret(ctx context.Context, key string, value []byte) error
	GetSecret(ctx context.Context, key string) ([]byte, error)
	DeleteSecret(ctx context.Context, key string) error
	ListSecrets(ctx context.Context) ([]string, error)
}

// IsNotFound reports whether the error marks a missing credential.
// Callers degrade gracefully on missing credentials instead of failing.
func IsNotFound(err error) bool {
	var cerr *schema.CadenceError
	if errors.As(err, &cerr) {
		return cerr.Code == schema.ErrCodeNotFound
	}
	return false
}

// notFound builds the canonical missing-credential error.
func notFound(key string) *schema.CadenceError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "credential %q not found", key)
}
