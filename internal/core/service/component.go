package service

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/storage/backup"
	"github.com/yndnr/savekeep-go/internal/storage/payload"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/internal/telemetry/metric"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// ComponentConfig configures a Component.
type ComponentConfig struct {
	// Root is the save root holding one directory per slot.
	Root string

	Registry RegistryConfig

	// Backups is optional. Backup operations fail with ErrInvalidArgument
	// when it is nil.
	Backups *backup.Manager

	AutoSaveEnabled  bool
	AutoSaveInterval time.Duration
}

// Component is the host facade over a save root. All methods are safe for
// concurrent use.
type Component struct {
	mu       sync.Mutex
	root     string
	registry *Registry
	backups  *backup.Manager
	autosave *AutoSaver
	log      logger.Logger
	metrics  *metric.Registry
}

// NewComponent creates a component. Call Load to read existing saves.
func NewComponent(codec *envelope.Codec, cfg ComponentConfig) (*Component, error) {
	if codec == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("component: codec is required")
	}
	if cfg.Root == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("component: root is required")
	}
	reg := NewRegistry(codec, cfg.Registry)
	return &Component{
		root:     cfg.Root,
		registry: reg,
		backups:  cfg.Backups,
		autosave: NewAutoSaver(cfg.AutoSaveInterval, cfg.AutoSaveEnabled),
		log:      reg.cfg.Slot.Logger.With("component", "savekeep", "root", cfg.Root),
		metrics:  cfg.Registry.Metrics,
	}, nil
}

func (c *Component) Root() string { return c.root }

// ============================================================================
// Load / Save
// ============================================================================

// Load reads every slot under the root. A missing root is an empty save
// set, not an error.
func (c *Component) Load() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Component) loadLocked() bool {
	if _, err := os.Stat(c.root); errors.Is(err, os.ErrNotExist) {
		c.registry.RemoveAll()
		c.log.Debug("save root missing, starting empty")
		return true
	}
	return c.registry.Load(c.root)
}

// Save writes a new save point for the active slot.
func (c *Component) Save() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Save(c.root)
}

// SaveInfo is Save returning the new record or the failure.
func (c *Component) SaveInfo() (*domain.SaveInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.SaveActive(c.root)
}

// UseGameSave activates the save point described by info. A nil info
// starts a new game in a fresh slot.
func (c *Component) UseGameSave(info *domain.SaveInfo) (*payload.Store, error) {
	if info == nil {
		return c.UseSave(0, 0)
	}
	return c.UseSave(info.SlotID, info.SerialID)
}

// UseSave activates slotID at serialID. See Registry.UseSave.
func (c *Component) UseSave(slotID, serialID int32) (*payload.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	store, err := c.registry.UseSave(slotID, serialID)
	if err != nil {
		c.log.Error("use save failed",
			"slot_id", slotID,
			"serial_id", serialID,
			"error", err,
			"code", domain.GetErrorCode(err),
		)
		return nil, err
	}
	c.autosave.Reset()
	return store, nil
}

// HeadInfos returns the newest save point of every slot.
func (c *Component) HeadInfos() []*domain.SaveInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneInfos(c.registry.HeadInfos())
}

// Infos returns every save point of slotID, newest first.
func (c *Component) Infos(slotID int32) ([]*domain.SaveInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.registry.Group(slotID)
	if !ok {
		return nil, domain.ErrSlotNotFound.WithDetailsf("slot %d", slotID)
	}
	return g.Infos(), nil
}

func cloneInfos(infos []*domain.SaveInfo) []*domain.SaveInfo {
	out := make([]*domain.SaveInfo, len(infos))
	for i, info := range infos {
		out[i] = info.Clone()
	}
	return out
}

// RemoveAll forgets every slot without touching the disk.
func (c *Component) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.RemoveAll()
}

// Count returns the number of known slots.
func (c *Component) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Count()
}

// Active returns the active slot id, or 0.
func (c *Component) Active() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.ActiveID()
}

// WithSlot runs fn on slotID's group under the component lock. A zero
// slotID selects the active slot.
func (c *Component) WithSlot(slotID int32, fn func(*slot.Group) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slotID == 0 {
		slotID = c.registry.ActiveID()
	}
	g, ok := c.registry.Group(slotID)
	if !ok {
		return domain.ErrSlotNotFound.WithDetailsf("slot %d", slotID)
	}
	return fn(g)
}

// ============================================================================
// Frame updates and auto-save
// ============================================================================

// Update advances play time and fires an auto-save when due. It reports
// whether an auto-save ran.
func (c *Component) Update(dt, realDt float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registry.Started() {
		return false
	}
	c.registry.Update(dt, realDt)
	if !c.autosave.Tick(realDt) {
		return false
	}
	c.log.Debug("auto-save triggered", "slot_id", c.registry.ActiveID())
	return c.registry.Save(c.root)
}

// SetAutoSave enables or disables auto-save. Either way the timer restarts.
func (c *Component) SetAutoSave(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autosave.SetEnabled(enabled)
}

// SetAutoSaveInterval changes the auto-save period.
func (c *Component) SetAutoSaveInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autosave.SetInterval(d)
	c.log.Info("auto-save interval changed", "interval", c.autosave.Interval())
}

// AutoSaveEnabled reports whether auto-save is on.
func (c *Component) AutoSaveEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autosave.Enabled()
}

// ============================================================================
// Maintenance
// ============================================================================

// Verify checks every save point of slotID.
func (c *Component) Verify(slotID int32) ([]slot.VerifyResult, error) {
	var results []slot.VerifyResult
	err := c.WithSlot(slotID, func(g *slot.Group) error {
		results = g.Verify()
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		c.metrics.ObserveVerify(r.Err)
		if r.Err != nil {
			c.log.Warn("save point failed verification",
				"slot_id", r.Info.SlotID,
				"serial_id", r.Info.SerialID,
				"path", r.Info.DataPath(),
				"error", r.Err,
				"code", domain.GetErrorCode(r.Err),
			)
		}
	}
	return results, nil
}

// Prune applies retention to slotID and returns the save points removed.
func (c *Component) Prune(slotID int32) (int, error) {
	var removed int
	err := c.WithSlot(slotID, func(g *slot.Group) error {
		n, err := g.Prune(SlotDir(c.root, g.ID()))
		removed = n
		return err
	})
	return removed, err
}

// DeleteSlot removes slotID from memory and disk.
func (c *Component) DeleteSlot(slotID int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.DeleteSlot(c.root, slotID)
}

// SlotStats is a metric.SlotCollector source.
func (c *Component) SlotStats() []metric.SlotStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.SlotStats()
}

// ============================================================================
// Backup / Restore
// ============================================================================

var errNoBackups = domain.ErrInvalidArgument.WithDetails("backups are not configured")

// Backup archives the save root.
func (c *Component) Backup() (*backup.Info, error) {
	if c.backups == nil {
		return nil, errNoBackups
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	info, err := c.backups.Create()
	c.metrics.ObserveBackup("create", err)
	return info, err
}

// CreateBackup is Backup with failures logged.
func (c *Component) CreateBackup() bool {
	info, err := c.Backup()
	if err != nil {
		c.log.Error("backup failed", "error", err, "code", domain.GetErrorCode(err))
		return false
	}
	c.log.Info("backup created", "name", info.Name, "size", info.Size)
	return true
}

// ListBackups returns archives newest first.
func (c *Component) ListBackups() ([]*backup.Info, error) {
	if c.backups == nil {
		return nil, errNoBackups
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backups.List()
}

// VerifyBackup checks the MAC and layout of archive name.
func (c *Component) VerifyBackup(name string) error {
	if c.backups == nil {
		return errNoBackups
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.backups.Verify(name)
	c.metrics.ObserveBackup("verify", err)
	return err
}

// Restore replaces the save root with archive name and reloads. The
// returned archive holds the state from before the restore.
func (c *Component) Restore(name string) (*backup.Info, error) {
	if c.backups == nil {
		return nil, errNoBackups
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pre, err := c.backups.Restore(name)
	c.metrics.ObserveBackup("restore", err)
	if err != nil {
		return pre, err
	}
	if !c.loadLocked() {
		return pre, domain.ErrIO.WithDetails("reload after restore")
	}
	return pre, nil
}

// RestoreBackup is Restore with failures logged.
func (c *Component) RestoreBackup(name string) bool {
	pre, err := c.Restore(name)
	if err != nil {
		args := []any{"name", name, "error", err, "code", domain.GetErrorCode(err)}
		if pre != nil {
			args = append(args, "pre_restore", pre.Name)
		}
		c.log.Error("restore failed", args...)
		return false
	}
	return true
}
