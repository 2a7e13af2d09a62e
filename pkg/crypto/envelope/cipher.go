package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// IVSize is the AES-CBC initialization vector length.
const IVSize = aes.BlockSize

var errPadding = errors.New("invalid padding")

// Cipher is the confidentiality layer of the envelope. Integrity is
// provided separately by the HMAC frame.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESCBC encrypts with AES in CBC mode, prepending a random IV.
type AESCBC struct {
	block cipher.Block
	rand  io.Reader
}

// NewAESCBC creates an AES-CBC cipher. Key must be 16, 24, or 32 bytes.
func NewAESCBC(key []byte) (*AESCBC, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("envelope: invalid key size for AES-CBC: must be 16, 24, or 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AESCBC{block: block, rand: rand.Reader}, nil
}

// Encrypt returns IV||ciphertext.
func (c *AESCBC) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	out := make([]byte, IVSize+len(padded))
	iv := out[:IVSize]
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[IVSize:], padded)
	return out, nil
}

// Decrypt expects IV||ciphertext as produced by Encrypt.
func (c *AESCBC) Decrypt(data []byte) ([]byte, error) {
	if len(data) < IVSize+aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}
	body := data[IVSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, data[:IVSize]).CryptBlocks(plain, body)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, errPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}
