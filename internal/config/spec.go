package config

import "time"

// Config is the root configuration for savekeep.
type Config struct {
	Storage  StorageSection  `koanf:"storage" yaml:"storage"`
	Backup   BackupSection   `koanf:"backup" yaml:"backup"`
	AutoSave AutoSaveSection `koanf:"autosave" yaml:"autosave"`
	Security SecuritySection `koanf:"security" yaml:"security"`
	Game     GameSection     `koanf:"game" yaml:"game"`
	Log      LogSection      `koanf:"log" yaml:"log"`
	Metrics  MetricsSection  `koanf:"metrics" yaml:"metrics"`
}

// StorageSection configures the save root and retention.
type StorageSection struct {
	RootDir       string `koanf:"root_dir" yaml:"root_dir"`
	MaxSavePoints int    `koanf:"max_save_points" yaml:"max_save_points"`
	AutoPrune     bool   `koanf:"auto_prune" yaml:"auto_prune"`
}

// BackupSection configures archives of the save root.
type BackupSection struct {
	// DirName is created under the save root.
	DirName    string `koanf:"dir_name" yaml:"dir_name"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups"`
}

// AutoSaveSection configures periodic saves while playing.
type AutoSaveSection struct {
	Enabled  bool          `koanf:"enabled" yaml:"enabled"`
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

// SecuritySection configures key derivation. Secret and Salt are
// required and never logged.
type SecuritySection struct {
	Secret     string `koanf:"secret" yaml:"secret"`
	Salt       string `koanf:"salt" yaml:"salt"`
	KDF        string `koanf:"kdf" yaml:"kdf"`
	Iterations int    `koanf:"iterations" yaml:"iterations"`
	// Cipher is aes-cbc unless saves never leave this tool.
	Cipher string `koanf:"cipher" yaml:"cipher"`
}

// GameSection describes the host application.
type GameSection struct {
	// Version is stamped into save points. Empty means the build version.
	Version         string `koanf:"version" yaml:"version"`
	DefaultSlotName string `koanf:"default_slot_name" yaml:"default_slot_name"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`

	// File is empty to log to stderr only.
	File       string `koanf:"file" yaml:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" yaml:"max_age_days"`
}

// MetricsSection configures the Prometheus listener used by play.
type MetricsSection struct {
	// Addr is empty to disable the listener.
	Addr string `koanf:"addr" yaml:"addr"`
}
