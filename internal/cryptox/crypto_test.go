package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/Adembc/lazycrm/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	cfg := domain.DefaultCryptoConfig()
	cfg.Iterations = 2 // keep the test fast
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, secret := range []string{"p", "P@ssw0rd!", "пароль с пробелами", "a;b=c'd\"e", string(make([]byte, 300))} {
		blob, err := c.Encrypt(secret)
		require.NoError(t, err)
		assert.NotEqual(t, secret, blob)

		got, err := c.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}
}

func TestCipher_Deterministic(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("secret-password")
	require.NoError(t, err)
	b, err := c.Encrypt("secret-password")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := c.Encrypt("secret-passwore")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestCipher_TamperedBlobFails(t *testing.T) {
	c := newTestCipher(t)

	blob, err := c.Encrypt("secret-password")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestCipher_MalformedBlobFails(t *testing.T) {
	c := newTestCipher(t)

	for _, blob := range []string{"not base64 !!", "", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decrypt(blob)
		assert.ErrorIs(t, err, domain.ErrDecryption, "blob %q", blob)
	}
}

func TestCipher_ConfigMismatchFails(t *testing.T) {
	c := newTestCipher(t)
	blob, err := c.Encrypt("secret-password")
	require.NoError(t, err)

	cfg := domain.DefaultCryptoConfig()
	cfg.Iterations = 2
	cfg.Salt = "another salt"
	other, err := New(cfg)
	require.NoError(t, err)

	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	base := domain.DefaultCryptoConfig()

	tests := []struct {
		name   string
		mutate func(*domain.CryptoConfig)
	}{
		{"empty passphrase", func(c *domain.CryptoConfig) { c.Passphrase = "" }},
		{"zero iterations", func(c *domain.CryptoConfig) { c.Iterations = 0 }},
		{"bad key size", func(c *domain.CryptoConfig) { c.KeySize = 100 }},
		{"unknown hash", func(c *domain.CryptoConfig) { c.HashAlgorithm = "MD5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNew_KeySizes(t *testing.T) {
	for _, size := range []int{128, 192, 256} {
		cfg := domain.DefaultCryptoConfig()
		cfg.Iterations = 1
		cfg.KeySize = size
		c, err := New(cfg)
		require.NoError(t, err)

		blob, err := c.Encrypt("x")
		require.NoError(t, err)
		got, err := c.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, "x", got)
	}
}
