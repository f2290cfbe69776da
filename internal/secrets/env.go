package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/candelahq/cadence/pkg/schema"
)

// EnvPrefix is the environment variable prefix the EnvVault reads from.
const EnvPrefix = "CADENCE_SECRET_"

// EnvVault resolves credentials from environment variables, for deployments
// that inject API keys through the process environment instead of the
// encrypted store. Store/Delete are not supported.
type EnvVault struct{}

// NewEnvVault creates an environment-backed vault.
func NewEnvVault() *EnvVault { return &EnvVault{} }

// Resolve maps a credential key to CADENCE_SECRET_<KEY> (uppercased, with
// non-alphanumerics folded to underscores) and reads it from the environment.
func (v *EnvVault) Resolve(_ context.Context, key string) ([]byte, error) {
	val, ok := os.LookupEnv(envName(key))
	if !ok || val == "" {
		return nil, notFound(key)
	}
	return []byte(val), nil
}

func (v *EnvVault) Store(_ context.Context, _ string, _ []byte) error {
	return schema.NewError(schema.ErrCodeValidation, "env vault is read-only")
}

func (v *EnvVault) Delete(_ context.Context, _ string) error {
	return schema.NewError(schema.ErrCodeValidation, "env vault is read-only")
}

func (v *EnvVault) List(_ context.Context) ([]string, error) {
	var keys []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) {
			keys = append(keys, strings.ToLower(strings.TrimPrefix(name, EnvPrefix)))
		}
	}
	return keys, nil
}

func envName(key string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, r := range strings.ToUpper(key) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var (
	_ Vault = (*EnvVault)(nil)
	_ Vault = (*AESVault)(nil)
)
