// Package notelink implements the client side of a note's capability key:
// key generation, AES-256-GCM sealing compatible with WebCrypto, and share
// links that carry the key only in the URL fragment.
package notelink

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length WebCrypto uses by default.
	IVSize = 12
)

var (
	ErrInvalidKey = errors.New("notelink: key must be 32 bytes")
	ErrDecrypt    = errors.New("notelink: ciphertext cannot be decrypted with this key")
)

// Key is a note decryption key. It must only ever travel in a link fragment.
type Key [KeySize]byte

// GenerateKey returns a fresh random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, fmt.Errorf("notelink: generate key: %w", err)
	}
	return k, nil
}

// KeyFromBytes validates and copies a raw key.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return Key{}, ErrInvalidKey
	}
	copy(k[:], b)
	return k, nil
}

// Encrypt seals plaintext under key with a random IV. The returned
// ciphertext includes the GCM tag, matching WebCrypto's output layout.
func Encrypt(key Key, plaintext []byte) (ciphertext, iv []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("notelink: generate iv: %w", err)
	}

	return aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens ciphertext produced by Encrypt or by WebCrypto AES-GCM.
func Decrypt(key Key, ciphertext, iv []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrDecrypt
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("notelink: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("notelink: init gcm: %w", err)
	}
	return aead, nil
}
