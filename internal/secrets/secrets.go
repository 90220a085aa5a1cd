// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/daemon-codex/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a config value as encrypted.
// Format: ENC:base64(nonce || ciphertext || tag)
const EncryptedPrefix = "ENC:"

// KeySize is the AES-256 key size (32 bytes).
const KeySize = 32

// NonceSize is the AES-GCM nonce size (12 bytes / 96 bits).
const NonceSize = 12

// SaltSize is the salt size for password-based key derivation.
const SaltSize = 32

// PBKDF2Iterations follows the OWASP 2023 recommendation for
// PBKDF2-SHA-256.
const PBKDF2Iterations = 600000

// keyFileName is the master key file stored under the config directory.
const keyFileName = "master.key"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCiphertext indicates the ciphertext is too short or malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrDecryptionFailed indicates a wrong key or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// =============================================================================
// HELPERS
// =============================================================================

// ZeroBytes zeros sensitive byte slices after use.
// SECURITY: Prevents key material disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsEncrypted reports whether a value carries the ENC: prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// DeriveKey derives an AES-256 key from a password and salt using
// PBKDF2-SHA-256.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// GenerateKey returns a cryptographically random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateSalt returns a cryptographically random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// =============================================================================
// KEEPER
// =============================================================================

// Keeper encrypts and decrypts API keys at rest with AES-256-GCM.
// A Keeper is safe for concurrent use once constructed; the cipher is
// never replaced after construction.
type Keeper struct {
	aead cipher.AEAD
}

// NewKeeper builds a Keeper around a raw 32-byte key. The caller may
// zero the key after the call returns; the cipher keeps its own schedule.
func NewKeeper(key []byte) (*Keeper, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Keeper{aead: aead}, nil
}

// NewKeeperFromPassword derives the key from a password and salt.
func NewKeeperFromPassword(password string, salt []byte) (*Keeper, error) {
	key := DeriveKey(password, salt)
	defer ZeroBytes(key)
	return NewKeeper(key)
}

// OpenKeyFile loads the master key from configDir, generating and
// persisting a new one on first use. The key file is created 0600.
func OpenKeyFile(configDir string) (*Keeper, error) {
	keyPath := filepath.Join(configDir, keyFileName)

	if data, err := os.ReadFile(keyPath); err == nil {
		defer ZeroBytes(data)
		return NewKeeper(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	if err := util.AtomicWriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to store key file: %w", err)
	}

	return NewKeeper(key)
}

// =============================================================================
// ENCRYPTION OPERATIONS
// =============================================================================

// Encrypt seals plaintext and returns nonce || ciphertext || tag.
func (k *Keeper) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return k.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens nonce || ciphertext || tag.
func (k *Keeper) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:NonceSize], ciphertext[NonceSize:]
	plaintext, err := k.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString seals a string and returns it with the ENC: prefix. An
// already-encrypted or empty value is returned unchanged so config save
// paths can call this unconditionally.
func (k *Keeper) EncryptString(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	sealed, err := k.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString. A value without the ENC: prefix
// is returned as-is, so plaintext keys in older config files keep working.
func (k *Keeper) DecryptString(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	encoded := strings.TrimPrefix(value, EncryptedPrefix)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}
	plaintext, err := k.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
