package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/meetingbot/pkg/config"
)

func testCfg(t *testing.T) *config.CredentialsConfig {
	t.Helper()
	t.Setenv("VAULT_TEST_SECRET", "correct horse battery staple")
	return &config.CredentialsConfig{
		StorePath: filepath.Join(t.TempDir(), "credentials.enc"),
		SecretEnv: "VAULT_TEST_SECRET",
	}
}

func TestNewFailsWithoutSecretEnvSet(t *testing.T) {
	_, err := New(&config.CredentialsConfig{StorePath: filepath.Join(t.TempDir(), "c.enc"), SecretEnv: "UNSET_VAULT_SECRET_VAR"})
	assert.Error(t, err)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	v, err := New(testCfg(t))
	require.NoError(t, err)

	require.NoError(t, v.Save("gmeet", []byte(`{"cookie":"abc"}`)))
	blob, err := v.Load("gmeet")
	require.NoError(t, err)
	assert.Equal(t, `{"cookie":"abc"}`, string(blob))
}

func TestLoadUnknownPlatformReturnsErrNotFound(t *testing.T) {
	v, err := New(testCfg(t))
	require.NoError(t, err)

	_, err = v.Load("teams")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopeningVaultDecryptsPreviouslySavedBlob(t *testing.T) {
	cfg := testCfg(t)

	v1, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, v1.Save("teams", []byte("teams-blob")))

	v2, err := New(cfg)
	require.NoError(t, err)
	blob, err := v2.Load("teams")
	require.NoError(t, err)
	assert.Equal(t, "teams-blob", string(blob))
}

func TestWrongSecretFailsToDecrypt(t *testing.T) {
	cfg := testCfg(t)

	v1, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, v1.Save("gmeet", []byte("secret-blob")))

	t.Setenv(cfg.SecretEnv, "a different passphrase entirely")
	v2, err := New(cfg)
	require.NoError(t, err)

	_, err = v2.Load("gmeet")
	assert.Error(t, err)
}
