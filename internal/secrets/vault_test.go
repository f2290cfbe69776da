package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candelahq/cadence/pkg/schema"
)

// memStore is an in-memory SecretStore for tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) StoreSecret(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memStore) GetSecret(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, notFound(key)
	}
	return v, nil
}

func (m *memStore) DeleteSecret(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) ListSecrets(_ context.Context) ([]string, error) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestAESVault_RoundTrip(t *testing.T) {
	vault, err := NewAESVault(newMemStore(), VaultConfig{
		Passphrase: "test-passphrase",
		Salt:       []byte("test-salt"),
		Iterations: 1000,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, vault.Store(ctx, "openai_api_key", []byte("sk-test")))

	val, err := vault.Resolve(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, []byte("sk-test"), val)
}

func TestAESVault_EncryptedAtRest(t *testing.T) {
	s := newMemStore()
	vault, err := NewAESVault(s, VaultConfig{
		Passphrase: "test-passphrase",
		Salt:       []byte("test-salt"),
		Iterations: 1000,
	})
	require.NoError(t, err)

	require.NoError(t, vault.Store(context.Background(), "k", []byte("plaintext")))
	assert.NotContains(t, string(s.data["k"]), "plaintext")
}

func TestAESVault_MissingCredential(t *testing.T) {
	vault, err := NewAESVault(newMemStore(), VaultConfig{
		Passphrase: "p", Salt: []byte("s"), Iterations: 1000,
	})
	require.NoError(t, err)

	_, err = vault.Resolve(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAESVault_BadMasterKey(t *testing.T) {
	_, err := NewAESVault(newMemStore(), VaultConfig{MasterKey: []byte("short")})
	require.Error(t, err)
	cerr, ok := err.(*schema.CadenceError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeConfiguration, cerr.Code)
}

func TestEnvVault_Resolve(t *testing.T) {
	t.Setenv("CADENCE_SECRET_ANTHROPIC_API_KEY", "key-123")

	vault := NewEnvVault()
	val, err := vault.Resolve(context.Background(), "anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, []byte("key-123"), val)
}

func TestEnvVault_Missing(t *testing.T) {
	vault := NewEnvVault()
	_, err := vault.Resolve(context.Background(), "definitely_not_set_anywhere")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestEnvVault_ReadOnly(t *testing.T) {
	vault := NewEnvVault()
	assert.Error(t, vault.Store(context.Background(), "k", []byte("v")))
	assert.Error(t, vault.Delete(context.Background(), "k"))
}
