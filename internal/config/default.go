package config

import (
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/storage/backup"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// Default configuration values.
const (
	DefaultRootDir          = "./GameSaveData"
	DefaultAutoSaveInterval = 300 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Default returns the default configuration. Security material is left
// empty and must be supplied.
func Default() *Config {
	return &Config{
		Storage: StorageSection{
			RootDir:       DefaultRootDir,
			MaxSavePoints: slot.DefaultMaxSavePoints,
			AutoPrune:     true,
		},
		Backup: BackupSection{
			DirName:    backup.DefaultDirName,
			MaxBackups: backup.DefaultMaxBackups,
		},
		AutoSave: AutoSaveSection{
			Enabled:  true,
			Interval: DefaultAutoSaveInterval,
		},
		Security: SecuritySection{
			KDF:        string(envelope.KDFPBKDF2),
			Iterations: envelope.DefaultIterations,
			Cipher:     string(envelope.CipherAESCBC),
		},
		Game: GameSection{
			DefaultSlotName: domain.DefaultSlotName,
		},
		Log: LogSection{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
