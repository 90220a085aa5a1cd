// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeeper(t *testing.T) *Keeper {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	k, err := NewKeeper(key)
	require.NoError(t, err)
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k := newTestKeeper(t)

	plaintext := "sk-abc123-very-secret"
	sealed, err := k.EncryptString(plaintext)
	require.NoError(t, err)

	assert.True(t, IsEncrypted(sealed))
	assert.NotContains(t, sealed, plaintext)

	opened, err := k.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptStringPassthrough(t *testing.T) {
	k := newTestKeeper(t)

	// Empty values stay empty.
	out, err := k.EncryptString("")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	// Double encryption must not happen.
	sealed, err := k.EncryptString("secret")
	require.NoError(t, err)
	again, err := k.EncryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed, again)
}

func TestDecryptStringPlaintextPassthrough(t *testing.T) {
	k := newTestKeeper(t)

	// Values without the ENC: prefix pass through untouched.
	out, err := k.DecryptString("sk-plaintext-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-plaintext-key", out)
}

func TestDecryptWrongKey(t *testing.T) {
	k1 := newTestKeeper(t)
	k2 := newTestKeeper(t)

	sealed, err := k1.EncryptString("secret")
	require.NoError(t, err)

	_, err = k2.DecryptString(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	k := newTestKeeper(t)

	sealed, err := k.Encrypt([]byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = k.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptTruncatedCiphertext(t *testing.T) {
	k := newTestKeeper(t)

	_, err := k.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNonceUniqueness(t *testing.T) {
	k := newTestKeeper(t)

	// Same plaintext must never produce the same ciphertext twice.
	a, err := k.EncryptString("secret")
	require.NoError(t, err)
	b, err := k.EncryptString("secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewKeeperRejectsBadKeySize(t *testing.T) {
	_, err := NewKeeper([]byte("too short"))
	assert.Error(t, err)
}

func TestNewKeeperFromPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	k1, err := NewKeeperFromPassword("hunter2", salt)
	require.NoError(t, err)
	k2, err := NewKeeperFromPassword("hunter2", salt)
	require.NoError(t, err)

	// Same password and salt derive the same key.
	sealed, err := k1.EncryptString("secret")
	require.NoError(t, err)
	opened, err := k2.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", opened)
}

func TestOpenKeyFile(t *testing.T) {
	dir := t.TempDir()

	k1, err := OpenKeyFile(dir)
	require.NoError(t, err)

	keyPath := filepath.Join(dir, "master.key")
	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second open must load the same key, not generate a new one.
	sealed, err := k1.EncryptString("secret")
	require.NoError(t, err)

	k2, err := OpenKeyFile(dir)
	require.NoError(t, err)
	opened, err := k2.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", opened)
}

func TestEncryptedValueShape(t *testing.T) {
	k := newTestKeeper(t)

	sealed, err := k.EncryptString("secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, EncryptedPrefix))

	// Everything after the prefix is valid base64 of nonce+ciphertext+tag.
	encoded := strings.TrimPrefix(sealed, EncryptedPrefix)
	assert.NotEmpty(t, encoded)
}
