// Package crypto provides AES-256-GCM encryption for the Discord OAuth tokens stored on
// participant profiles. The cipher key comes from ENCRYPTION_KEY: either 64 hex characters
// used as the raw key, or a passphrase stretched with PBKDF2.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor for passphrase-derived keys
	DefaultIterations = 100000

	// tokenSalt is fixed so every replica derives the same key from the same passphrase
	tokenSalt = "sundai-hackathon/discord-oauth-tokens"
)

var (
	// ErrKeyLengthInvalid is returned when a master key is not exactly 32 bytes (required for AES-256).
	ErrKeyLengthInvalid = errors.New("crypto: key must be exactly 32 bytes for AES-256")
	// ErrCiphertextCorrupted is returned when the ciphertext fails base64 decoding or is too short to contain a nonce.
	ErrCiphertextCorrupted = errors.New("crypto: ciphertext is corrupted or tampered")
	// ErrDecryptionFailed is returned when AES-GCM authentication fails.
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrSaltTooShort is returned when the provided salt is fewer than 16 bytes.
	ErrSaltTooShort = errors.New("crypto: salt must be at least 16 bytes")
	// ErrNoEncryptionKey is returned when ENCRYPTION_KEY is empty.
	ErrNoEncryptionKey = errors.New("crypto: encryption key is not configured")
)

// TokenCipher encrypts and decrypts OAuth tokens
type TokenCipher struct {
	masterKey []byte
}

// NewTokenCipher creates a cipher with a 32-byte master key
func NewTokenCipher(masterKey []byte) (*TokenCipher, error) {
	if len(masterKey) != 32 {
		return nil, ErrKeyLengthInvalid
	}
	keyCopy := make([]byte, 32)
	copy(keyCopy, masterKey)
	return &TokenCipher{masterKey: keyCopy}, nil
}

// DeriveTokenCipher creates a cipher by deriving a key from a passphrase
func DeriveTokenCipher(passphrase string, salt []byte, iterations int) (*TokenCipher, error) {
	if len(salt) < 16 {
		return nil, ErrSaltTooShort
	}
	if iterations < 10000 {
		iterations = DefaultIterations
	}
	derivedKey := pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
	return NewTokenCipher(derivedKey)
}

// FromEncryptionKey builds the cipher from the configured ENCRYPTION_KEY value.
// A 64-character hex string is used directly; anything else is treated as a passphrase.
func FromEncryptionKey(key string) (*TokenCipher, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNoEncryptionKey
	}
	if len(key) == 64 {
		if raw, err := hex.DecodeString(key); err == nil {
			return NewTokenCipher(raw)
		}
	}
	return DeriveTokenCipher(key, []byte(tokenSalt), DefaultIterations)
}

// Seal encrypts plaintext and returns a base64-encoded ciphertext
func (tc *TokenCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := tc.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// SealOptional is Seal for nullable columns: an empty plaintext yields nil
func (tc *TokenCipher) SealOptional(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	sealed, err := tc.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

// Open decrypts a base64-encoded ciphertext and returns the plaintext
func (tc *TokenCipher) Open(encodedCiphertext string) (string, error) {
	if encodedCiphertext == "" {
		return "", nil
	}

	ciphertext, err := base64.URLEncoding.DecodeString(encodedCiphertext)
	if err != nil {
		return "", ErrCiphertextCorrupted
	}

	aead, err := tc.aead()
	if err != nil {
		return "", err
	}

	nonceLen := aead.NonceSize()
	if len(ciphertext) < nonceLen {
		return "", ErrCiphertextCorrupted
	}

	plaintext, err := aead.Open(nil, ciphertext[:nonceLen], ciphertext[nonceLen:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (tc *TokenCipher) aead() (cipher.AEAD, error) {
	blockCipher, err := aes.NewCipher(tc.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}

// GenerateKey creates a cryptographically secure random 32-byte key
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateKeyHex returns a random key in the hex form accepted by FromEncryptionKey
func GenerateKeyHex() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
