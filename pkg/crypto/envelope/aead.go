package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType names the confidentiality layer of a Codec.
type CipherType string

const (
	// CipherAESCBC is the default and the only layer readable by other
	// implementations of the save format.
	CipherAESCBC   CipherType = "aes-cbc"
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// ParseCipherType validates a configured cipher name. Empty means
// CipherAESCBC.
func ParseCipherType(s string) (CipherType, error) {
	switch t := CipherType(s); t {
	case "":
		return CipherAESCBC, nil
	case CipherAESCBC, CipherAESGCM, CipherChaCha20:
		return t, nil
	default:
		return "", fmt.Errorf("envelope: unknown cipher %q", s)
	}
}

// NewCipher creates the cipher of type t over key.
func NewCipher(t CipherType, key []byte) (Cipher, error) {
	switch t {
	case "", CipherAESCBC:
		return NewAESCBC(key)
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("envelope: unknown cipher %q", t)
	}
}

// AEAD adapts an authenticated cipher to the envelope, prepending a
// random nonce. The HMAC frame still covers nonce and ciphertext.
type AEAD struct {
	aead cipher.AEAD
	kind CipherType
	rand io.Reader
}

// NewAESGCM creates an AES-GCM cipher. Key must be 16, 24, or 32 bytes.
func NewAESGCM(key []byte) (*AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("envelope: invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: aead, kind: CipherAESGCM, rand: rand.Reader}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher. Key must be 32 bytes.
func NewChaCha20(key []byte) (*AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("envelope: invalid key size for ChaCha20-Poly1305: must be 32 bytes")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: aead, kind: CipherChaCha20, rand: rand.Reader}, nil
}

func (c *AEAD) Type() CipherType { return c.kind }

// Encrypt returns nonce||ciphertext||tag.
func (c *AEAD) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt.
func (c *AEAD) Decrypt(data []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(data) < n+c.aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}
	return c.aead.Open(nil, data[:n], data[n:], nil)
}
