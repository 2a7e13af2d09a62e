package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Security.Secret = "correct horse battery staple"
	cfg.Security.Salt = "savekeep-salt"
	cfg.Security.Iterations = 1000
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Storage.RootDir != DefaultRootDir {
		t.Errorf("RootDir = %q, want %q", cfg.Storage.RootDir, DefaultRootDir)
	}
	if cfg.Storage.MaxSavePoints != 10 || !cfg.Storage.AutoPrune {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Backup.DirName != "Backup" || cfg.Backup.MaxBackups != 5 {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if !cfg.AutoSave.Enabled || cfg.AutoSave.Interval != 300*time.Second {
		t.Errorf("autosave = %+v", cfg.AutoSave)
	}
	if cfg.Security.Cipher != "aes-cbc" {
		t.Errorf("Cipher = %q", cfg.Security.Cipher)
	}
	if cfg.Security.KDF != "pbkdf2" {
		t.Errorf("KDF = %q", cfg.Security.KDF)
	}
	if cfg.Game.DefaultSlotName != "NewGameSave" {
		t.Errorf("DefaultSlotName = %q", cfg.Game.DefaultSlotName)
	}
	if err := Verify(cfg); err == nil {
		t.Error("Default must fail Verify until security material is supplied")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"argon2id", func(c *Config) { c.Security.KDF = "argon2id"; c.Security.Iterations = 0 }, ""},
		{"empty root", func(c *Config) { c.Storage.RootDir = " " }, "storage.root_dir"},
		{"zero cap", func(c *Config) { c.Storage.MaxSavePoints = 0 }, "max_save_points"},
		{"nested backup dir", func(c *Config) { c.Backup.DirName = "a/b" }, "backup.dir_name"},
		{"zero backups", func(c *Config) { c.Backup.MaxBackups = 0 }, "max_backups"},
		{"zero interval", func(c *Config) { c.AutoSave.Interval = 0 }, "autosave.interval"},
		{"short secret", func(c *Config) { c.Security.Secret = "abc" }, "security.secret"},
		{"missing salt", func(c *Config) { c.Security.Salt = "" }, "security.salt"},
		{"unknown kdf", func(c *Config) { c.Security.KDF = "scrypt" }, "security.kdf"},
		{"pbkdf2 without iterations", func(c *Config) { c.Security.Iterations = 0 }, "security.iterations"},
		{"chacha20", func(c *Config) { c.Security.Cipher = "chacha20-poly1305" }, ""},
		{"unknown cipher", func(c *Config) { c.Security.Cipher = "des" }, "security.cipher"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log file without size", func(c *Config) { c.Log.File = "x.log"; c.Log.MaxSizeMB = 0 }, "log.max_size_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	s := Sanitize(cfg)
	if cfg.Security.Secret != "correct horse battery staple" {
		t.Error("original config modified")
	}
	if s.Security.Secret == cfg.Security.Secret || s.Security.Salt == cfg.Security.Salt {
		t.Error("secrets not masked")
	}
	if len(s.Security.Secret) != len(cfg.Security.Secret) {
		t.Errorf("masked length = %d, want %d", len(s.Security.Secret), len(cfg.Security.Secret))
	}
	if got := maskSecret("abc"); got != "****" {
		t.Errorf("maskSecret(short) = %q", got)
	}
}

func TestLoad_FileEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "savekeep.yaml")
	content := `
storage:
  root_dir: ./from-file
  max_save_points: 4
autosave:
  interval: 30s
security:
  secret: file-secret-value
  salt: file-salt-value
  iterations: 1000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("SAVEKEEP_BACKUP_MAX_BACKUPS", "2")

	cfg, err := Load(NewLoader(path, map[string]any{"log.level": "debug"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.RootDir != "./from-file" || cfg.Storage.MaxSavePoints != 4 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Storage.AutoPrune {
		t.Error("default auto_prune lost")
	}
	if cfg.AutoSave.Interval != 30*time.Second {
		t.Errorf("interval = %v", cfg.AutoSave.Interval)
	}
	if cfg.Backup.MaxBackups != 2 || cfg.Backup.DirName != "Backup" {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidFails(t *testing.T) {
	if _, err := Load(NewLoader("", nil)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestKeyMaterial(t *testing.T) {
	cfg := validConfig()
	km, err := cfg.Security.KeyMaterial()
	if err != nil {
		t.Fatalf("KeyMaterial: %v", err)
	}
	if string(km.KDF()) != "pbkdf2" {
		t.Errorf("KDF = %q", km.KDF())
	}

	cfg.Security.Salt = "x"
	if _, err := cfg.Security.KeyMaterial(); !errors.Is(err, domain.ErrCrypto) {
		t.Fatalf("err = %v, want ErrCrypto", err)
	}
}

func TestGameVersion(t *testing.T) {
	g := GameSection{}
	if g.GameVersion("1.2.3") != "1.2.3" {
		t.Error("fallback not used")
	}
	g.Version = "9.9"
	if g.GameVersion("1.2.3") != "9.9" {
		t.Error("configured version ignored")
	}
}
