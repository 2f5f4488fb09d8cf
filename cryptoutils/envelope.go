package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	envelopeSaltSize  = 16
	envelopeNonceSize = 12

	// PBKDF2Iterations is the work factor used to stretch file keys.
	PBKDF2Iterations = 250000

	FileKeySize = 32
)

var ErrEnvelopeTooShort = errors.New("encrypted payload too short")

// NewFileKey returns a random hex encoded file key.
func NewFileKey() (string, error) {
	key := make([]byte, FileKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("could not generate file key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext with a key derived from password.
// The envelope layout is salt(16) | nonce(12) | AES-256-GCM ciphertext.
func Seal(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, envelopeSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, envelopeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	aead, err := envelopeAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, envelopeSaltSize+envelopeNonceSize+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(envelope []byte, password string) ([]byte, error) {
	if len(envelope) < envelopeSaltSize+envelopeNonceSize {
		return nil, ErrEnvelopeTooShort
	}
	salt := envelope[:envelopeSaltSize]
	nonce := envelope[envelopeSaltSize : envelopeSaltSize+envelopeNonceSize]

	aead, err := envelopeAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, envelope[envelopeSaltSize+envelopeNonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt payload: %w", err)
	}
	return plaintext, nil
}

func envelopeAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
