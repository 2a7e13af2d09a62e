package envelope

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the derived key length (AES-256).
const KeySize = 32

// KDF identifies the key derivation function.
type KDF string

const (
	KDFPBKDF2   KDF = "pbkdf2"
	KDFArgon2id KDF = "argon2id"
)

const (
	// DefaultIterations is the PBKDF2 iteration count.
	DefaultIterations = 100_000

	MinSecretLength = 8
	MinSaltLength   = 8

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	ErrSecretTooShort = errors.New("envelope: secret too short (minimum 8 bytes)")
	ErrSaltTooShort   = errors.New("envelope: salt too short (minimum 8 bytes)")
	ErrUnknownKDF     = errors.New("envelope: unknown key derivation function")
)

// SecretProvider supplies the secret and salt the key is derived from.
type SecretProvider interface {
	SecretMaterial() (secret, salt []byte, err error)
}

// StaticSecret is a SecretProvider over fixed values, typically read
// from configuration.
type StaticSecret struct {
	Secret []byte
	Salt   []byte
}

// SecretMaterial implements SecretProvider.
func (s StaticSecret) SecretMaterial() ([]byte, []byte, error) {
	return s.Secret, s.Salt, nil
}

// KDFOptions tunes key derivation.
type KDFOptions struct {
	// KDF defaults to KDFPBKDF2.
	KDF KDF

	// Iterations applies to PBKDF2 only. Defaults to DefaultIterations.
	Iterations int
}

// KeyMaterial is an immutable derived key. It is safe for concurrent use.
type KeyMaterial struct {
	key [KeySize]byte
	kdf KDF
}

// DeriveKey derives key material from the provider's secret and salt.
func DeriveKey(p SecretProvider, opts KDFOptions) (*KeyMaterial, error) {
	if p == nil {
		return nil, fmt.Errorf("envelope: nil secret provider")
	}
	secret, salt, err := p.SecretMaterial()
	if err != nil {
		return nil, fmt.Errorf("envelope: read secret: %w", err)
	}
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if len(salt) < MinSaltLength {
		return nil, ErrSaltTooShort
	}

	kdf := opts.KDF
	if kdf == "" {
		kdf = KDFPBKDF2
	}

	var derived []byte
	switch kdf {
	case KDFPBKDF2:
		iter := opts.Iterations
		if iter <= 0 {
			iter = DefaultIterations
		}
		derived = pbkdf2.Key(secret, salt, iter, KeySize, sha256.New)
	case KDFArgon2id:
		derived = argon2.IDKey(secret, salt, argon2Time, argon2Memory, argon2Threads, KeySize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKDF, kdf)
	}

	km := &KeyMaterial{kdf: kdf}
	copy(km.key[:], derived)
	zero(derived)
	return km, nil
}

// NewKeyMaterial wraps a raw 32-byte key. Intended for tests and for
// callers that manage their own key storage.
func NewKeyMaterial(key []byte) (*KeyMaterial, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("envelope: key must be %d bytes, got %d", KeySize, len(key))
	}
	km := &KeyMaterial{}
	copy(km.key[:], key)
	return km, nil
}

// KDF reports how the key was derived. Empty for raw keys.
func (k *KeyMaterial) KDF() KDF {
	return k.kdf
}

// Subkey derives an independent key for another purpose with HKDF.
func (k *KeyMaterial) Subkey(info string, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, k.key[:], nil, []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("envelope: derive subkey: %w", err)
	}
	return out, nil
}

func (k *KeyMaterial) bytes() []byte {
	return k.key[:]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
