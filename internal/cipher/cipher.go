// Package cipher stores Habitica API tokens encrypted at rest. The
// symmetric key lives in a file next to the deployment; losing or
// regenerating it makes every stored token garbage.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrInvalidCiphertext = errors.New("cipher: invalid ciphertext")

type Codec struct {
	KeyFile string
}

func New(keyFile string) *Codec {
	return &Codec{KeyFile: keyFile}
}

// Init generates the key file if it does not exist yet. An existing key
// is left alone.
func (c *Codec) Init() error {
	if _, err := os.Stat(c.KeyFile); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cipher: check key file: %w", err)
	}
	return c.Generate()
}

// Generate writes a fresh random key, replacing any existing one.
func (c *Codec) Generate() error {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("cipher: generate key: %w", err)
	}
	if err := os.WriteFile(c.KeyFile, key, 0600); err != nil {
		return fmt.Errorf("cipher: write key file: %w", err)
	}
	return nil
}

func (c *Codec) key() (*[keySize]byte, error) {
	raw, err := os.ReadFile(c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("cipher: read key file: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("cipher: key file %s holds %d bytes, want %d", c.KeyFile, len(raw), keySize)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Encrypt seals plain text into a blob of nonce + box.
func (c *Codec) Encrypt(plain []byte) ([]byte, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("cipher: generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Codec) Decrypt(blob []byte) ([]byte, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}
	if len(blob) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	plain, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrInvalidCiphertext
	}
	return plain, nil
}
