package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

// defaultPassphrase only obfuscates the file; set SETTINGS_PASSPHRASE for real protection.
const defaultPassphrase = "portfolio-tracker-local-settings"

// ErrDecrypt is returned when the passphrase is wrong or the file is damaged.
var ErrDecrypt = errors.New("decryption failed: invalid passphrase or corrupted data")

// Crypto seals the settings file with AES-256-GCM under a PBKDF2-derived key.
// Layout: salt | nonce | ciphertext+tag.
type Crypto struct {
	passphrase string
}

func NewCrypto(passphrase string) *Crypto {
	if passphrase == "" {
		passphrase = defaultPassphrase
	}
	return &Crypto{passphrase: passphrase}
}

func (c *Crypto) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(c.passphrase), salt, iterations, keySize, sha256.New)
}

func (c *Crypto) gcm(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt uses a fresh salt and nonce on every call.
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	return aead.Seal(append(out, nonce...), nonce, plaintext, nil), nil
}

func (c *Crypto) Decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, fmt.Errorf("ciphertext too short: %w", ErrDecrypt)
	}
	salt, rest := data[:saltSize], data[saltSize:]

	aead, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short: %w", ErrDecrypt)
	}

	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
