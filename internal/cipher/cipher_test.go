package cipher

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c := New(filepath.Join(t.TempDir(), "cipher.key"))
	if err := c.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}

func TestInitCreatesKeyFile(t *testing.T) {
	c := newTestCodec(t)

	info, err := os.Stat(c.KeyFile)
	if err != nil {
		t.Fatalf("key file not created: %v", err)
	}
	if info.Size() != keySize {
		t.Errorf("key file holds %d bytes, want %d", info.Size(), keySize)
	}
}

func TestInitKeepsExistingKey(t *testing.T) {
	c := newTestCodec(t)

	blob, err := c.Encrypt([]byte("secret token"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// A second Init must not rotate the key; old blobs stay readable.
	if err := c.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	plain, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt after re-Init failed: %v", err)
	}
	if string(plain) != "secret token" {
		t.Errorf("got %q, want %q", plain, "secret token")
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c := newTestCodec(t)

	plain := []byte("8a24f5c1-api-token")
	blob, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(blob, plain) {
		t.Error("ciphertext contains the plaintext")
	}

	got, err := c.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %q, want %q", got, plain)
	}
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	c := newTestCodec(t)

	blob, err := c.Encrypt([]byte("token"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	blob[len(blob)-1] ^= 0xff

	if _, err := c.Decrypt(blob); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("got %v, want ErrInvalidCiphertext", err)
	}
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	c := newTestCodec(t)

	if _, err := c.Decrypt([]byte("short")); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("got %v, want ErrInvalidCiphertext", err)
	}
}

func TestGenerateReplacesKey(t *testing.T) {
	c := newTestCodec(t)

	blob, err := c.Encrypt([]byte("token"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if err := c.Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := c.Decrypt(blob); err == nil {
		t.Error("old blob still decrypts after key rotation")
	}
}
