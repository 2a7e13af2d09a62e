package config

import (
	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/infra/confloader"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// NewLoader returns a loader over the YAML file at path (optional),
// SAVEKEEP_ environment variables, and overrides keyed by dotted path.
func NewLoader(path string, overrides map[string]any) *confloader.Loader {
	return confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
}

// Load reads l on top of Default and verifies the result.
func Load(l *confloader.Loader) (*Config, error) {
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("load config").Wrap(err)
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KeyMaterial derives the payload key from the security section.
func (s SecuritySection) KeyMaterial() (*envelope.KeyMaterial, error) {
	km, err := envelope.DeriveKey(
		envelope.StaticSecret{Secret: []byte(s.Secret), Salt: []byte(s.Salt)},
		envelope.KDFOptions{KDF: envelope.KDF(s.KDF), Iterations: s.Iterations},
	)
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("derive key").Wrap(err)
	}
	return km, nil
}

// CodecOptions returns the envelope options for the configured cipher.
func (s SecuritySection) CodecOptions() []envelope.Option {
	ct, err := envelope.ParseCipherType(s.Cipher)
	if err != nil {
		return nil
	}
	return []envelope.Option{envelope.WithCipherType(ct)}
}

// GameVersion returns the configured version, or fallback when unset.
func (g GameSection) GameVersion(fallback string) string {
	if g.Version != "" {
		return g.Version
	}
	return fallback
}
