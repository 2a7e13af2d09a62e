package envelope

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// MaxPlaintextSize bounds decompressed output.
const MaxPlaintextSize = 256 << 20

const macLenSize = 4

var (
	// ErrIntegrity reports an HMAC frame that failed verification.
	ErrIntegrity = errors.New("envelope: integrity check failed")

	// ErrMalformed reports ciphertext or compressed data that verified
	// but could not be decoded.
	ErrMalformed = errors.New("envelope: malformed payload")
)

// Codec encodes and decodes save payloads. A Codec is safe for concurrent use.
type Codec struct {
	km         *KeyMaterial
	cipher     Cipher
	cipherType CipherType
	level      int
}

// Option configures a Codec.
type Option func(*Codec)

// WithCompressionLevel overrides the gzip level (default gzip.BestCompression).
func WithCompressionLevel(level int) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// WithCipher replaces the AES-CBC layer.
func WithCipher(ci Cipher) Option {
	return func(c *Codec) {
		c.cipher = ci
	}
}

// WithCipherType selects the confidentiality layer by name, keyed with
// the codec's key material.
func WithCipherType(t CipherType) Option {
	return func(c *Codec) {
		c.cipherType = t
	}
}

// New creates a Codec bound to the given key material.
func New(km *KeyMaterial, opts ...Option) (*Codec, error) {
	if km == nil {
		return nil, errors.New("envelope: nil key material")
	}
	c := &Codec{km: km, level: gzip.BestCompression}
	for _, opt := range opts {
		opt(c)
	}
	if c.cipher == nil {
		ci, err := NewCipher(c.cipherType, km.bytes())
		if err != nil {
			return nil, err
		}
		c.cipher = ci
	}
	return c, nil
}

// Encode compresses, encrypts, and HMAC-frames plaintext.
func (c *Codec) Encode(plaintext []byte) ([]byte, error) {
	compressed, err := c.compress(plaintext)
	if err != nil {
		return nil, fmt.Errorf("envelope: compress: %w", err)
	}

	sealed, err := c.cipher.Encrypt(compressed)
	if err != nil {
		return nil, fmt.Errorf("envelope: encrypt: %w", err)
	}

	mac := c.mac(sealed)
	out := make([]byte, macLenSize+len(mac)+len(sealed))
	binary.LittleEndian.PutUint32(out, uint32(len(mac)))
	copy(out[macLenSize:], mac)
	copy(out[macLenSize+len(mac):], sealed)
	return out, nil
}

// Decode verifies, decrypts, and decompresses an encoded blob.
func (c *Codec) Decode(blob []byte) ([]byte, error) {
	sealed, err := c.verify(blob)
	if err != nil {
		return nil, err
	}

	compressed, err := c.cipher.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", ErrMalformed, err)
	}

	plain, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrMalformed, err)
	}
	return plain, nil
}

// Verify checks the HMAC frame only.
func (c *Codec) Verify(blob []byte) error {
	_, err := c.verify(blob)
	return err
}

func (c *Codec) verify(blob []byte) ([]byte, error) {
	if len(blob) < macLenSize {
		return nil, fmt.Errorf("%w: frame too short", ErrIntegrity)
	}
	macLen := binary.LittleEndian.Uint32(blob)
	if macLen != sha256.Size {
		return nil, fmt.Errorf("%w: unexpected mac length %d", ErrIntegrity, macLen)
	}
	if len(blob) < macLenSize+sha256.Size {
		return nil, fmt.Errorf("%w: frame too short", ErrIntegrity)
	}

	stored := blob[macLenSize : macLenSize+sha256.Size]
	sealed := blob[macLenSize+sha256.Size:]
	if !hmac.Equal(stored, c.mac(sealed)) {
		return nil, ErrIntegrity
	}
	return sealed, nil
}

func (c *Codec) mac(data []byte) []byte {
	h := hmac.New(sha256.New, c.km.bytes())
	h.Write(data)
	return h.Sum(nil)
}

func (c *Codec) compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(p); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(p []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxPlaintextSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxPlaintextSize {
		return nil, errors.New("plaintext exceeds size limit")
	}
	return out, nil
}

// Hash returns base64(SHA-256(data)).
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyHash compares data against a Hash result in constant time.
func VerifyHash(data []byte, expected string) bool {
	return hmac.Equal([]byte(Hash(data)), []byte(expected))
}
