package command

import (
	"context"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/cli/output"
	"github.com/yndnr/savekeep-go/internal/config"
	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/core/service"
	"github.com/yndnr/savekeep-go/internal/infra/buildinfo"
	"github.com/yndnr/savekeep-go/internal/infra/confloader"
	"github.com/yndnr/savekeep-go/internal/storage/backup"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/internal/telemetry/metric"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

const (
	runtimeKey = "runtime"

	// backupKeyInfo separates the archive MAC key from the payload key.
	backupKeyInfo = "savekeep backup archive v1"
)

// Runtime is everything a command needs, built once per invocation.
type Runtime struct {
	Config    *config.Config
	Loader    *confloader.Loader
	Log       logger.Logger
	Metrics   *metric.Registry
	Component *service.Component
	Context   context.Context

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Format output.Format

	formatter output.Formatter
}

// runtimeFor returns the invocation's Runtime, building it on first use
// so that help and version work without configuration.
func runtimeFor(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return rt, nil
	}
	rt, err := newRuntime(c)
	if err != nil {
		return nil, err
	}
	c.App.Metadata[runtimeKey] = rt
	return rt, nil
}

func newRuntime(c *cli.Context) (*Runtime, error) {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, domain.ErrInvalidArgument.Wrap(err)
	}

	overrides := map[string]any{}
	if flags.Root != "" {
		overrides["storage.root_dir"] = flags.Root
	}
	if flags.Verbose {
		overrides["log.level"] = "debug"
	}
	loader := config.NewLoader(flags.Config, overrides)
	cfg, err := config.Load(loader)
	if err != nil {
		return nil, err
	}

	base, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
		File: logger.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
	})
	if err != nil {
		return nil, err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithSessionID(logger.WithLogger(ctx, base), ulid.Make().String())
	log := logger.L(ctx)
	log.Debug("configuration loaded", "config", flags.Config, "root", cfg.Storage.RootDir)

	km, err := cfg.Security.KeyMaterial()
	if err != nil {
		return nil, err
	}
	codec, err := envelope.New(km, cfg.Security.CodecOptions()...)
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("codec").Wrap(err)
	}
	backupKey, err := km.Subkey(backupKeyInfo, envelope.KeySize)
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("backup key").Wrap(err)
	}

	metrics := metric.NewRegistry()
	backups, err := backup.NewManager(backup.Config{
		Root:       cfg.Storage.RootDir,
		DirName:    cfg.Backup.DirName,
		MaxBackups: cfg.Backup.MaxBackups,
		Key:        backupKey,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	comp, err := service.NewComponent(codec, service.ComponentConfig{
		Root: cfg.Storage.RootDir,
		Registry: service.RegistryConfig{
			Slot: slot.Config{
				MaxSavePoints: cfg.Storage.MaxSavePoints,
				AutoPrune:     cfg.Storage.AutoPrune,
				GameVersion:   cfg.Game.GameVersion(buildinfo.GameVersion()),
				Logger:        log,
			},
			DefaultName: cfg.Game.DefaultSlotName,
			Metrics:     metrics,
		},
		Backups:          backups,
		AutoSaveEnabled:  cfg.AutoSave.Enabled,
		AutoSaveInterval: cfg.AutoSave.Interval,
	})
	if err != nil {
		return nil, err
	}
	if err := metrics.Register(metric.NewSlotCollector(comp.SlotStats)); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("register slot collector").Wrap(err)
	}
	if !comp.Load() {
		return nil, domain.ErrIO.WithDetailsf("cannot load save root %s", cfg.Storage.RootDir)
	}

	return &Runtime{
		Config:    cfg,
		Loader:    loader,
		Log:       log,
		Metrics:   metrics,
		Component: comp,
		Context:   ctx,
		Stdin:     c.App.Reader,
		Stdout:    c.App.Writer,
		Stderr:    c.App.ErrWriter,
		Format:    format,
		formatter: output.NewFormatter(format, flags.Wide),
	}, nil
}

// Render writes data with the selected formatter.
func (rt *Runtime) Render(data any) error {
	return rt.formatter.Format(rt.Stdout, data)
}
