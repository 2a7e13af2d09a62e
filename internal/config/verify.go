package config

import (
	"strings"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// Verify validates the configuration and returns the first problem found.
func Verify(cfg *Config) error {
	if cfg == nil {
		return domain.ErrInvalidArgument.WithDetails("config is nil")
	}
	checks := []func(*Config) error{
		verifyStorage,
		verifyBackup,
		verifyAutoSave,
		verifySecurity,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return domain.ErrInvalidArgument.WithDetailsf(format, args...)
}

func verifyStorage(cfg *Config) error {
	if strings.TrimSpace(cfg.Storage.RootDir) == "" {
		return invalid("storage.root_dir is required")
	}
	if cfg.Storage.MaxSavePoints < 1 {
		return invalid("storage.max_save_points must be at least 1, got %d", cfg.Storage.MaxSavePoints)
	}
	return nil
}

func verifyBackup(cfg *Config) error {
	name := cfg.Backup.DirName
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return invalid("backup.dir_name %q must be a plain directory name", name)
	}
	if cfg.Backup.MaxBackups < 1 {
		return invalid("backup.max_backups must be at least 1, got %d", cfg.Backup.MaxBackups)
	}
	return nil
}

func verifyAutoSave(cfg *Config) error {
	if cfg.AutoSave.Interval <= 0 {
		return invalid("autosave.interval must be positive, got %s", cfg.AutoSave.Interval)
	}
	return nil
}

func verifySecurity(cfg *Config) error {
	s := cfg.Security
	if len(s.Secret) < envelope.MinSecretLength {
		return invalid("security.secret must be at least %d bytes", envelope.MinSecretLength)
	}
	if len(s.Salt) < envelope.MinSaltLength {
		return invalid("security.salt must be at least %d bytes", envelope.MinSaltLength)
	}
	switch envelope.KDF(s.KDF) {
	case envelope.KDFPBKDF2:
		if s.Iterations < 1 {
			return invalid("security.iterations must be positive, got %d", s.Iterations)
		}
	case envelope.KDFArgon2id:
	default:
		return invalid("security.kdf %q is not one of pbkdf2, argon2id", s.KDF)
	}
	if _, err := envelope.ParseCipherType(s.Cipher); err != nil {
		return invalid("security.cipher %q is not one of aes-cbc, aes-gcm, chacha20-poly1305", s.Cipher)
	}
	return nil
}

func verifyLog(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format %q is not one of text, json", cfg.Log.Format)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB < 1 {
		return invalid("log.max_size_mb must be at least 1, got %d", cfg.Log.MaxSizeMB)
	}
	return nil
}
