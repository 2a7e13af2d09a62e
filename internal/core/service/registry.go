package service

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/storage/payload"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/internal/telemetry/metric"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Slot is the template handed to every slot group. Its Clock, Rand
	// and Logger are shared with the registry.
	Slot slot.Config

	// DefaultName names slots created by UseSave.
	DefaultName string

	// Metrics is optional.
	Metrics *metric.Registry
}

// Registry maps slot ids to slot groups and tracks the active slot.
// It is not safe for concurrent use.
type Registry struct {
	codec   *envelope.Codec
	cfg     RegistryConfig
	log     logger.Logger
	metrics *metric.Registry

	groups  map[int32]*slot.Group
	active  int32
	started bool
}

// NewRegistry returns an empty registry whose groups encode payloads
// with codec.
func NewRegistry(codec *envelope.Codec, cfg RegistryConfig) *Registry {
	if cfg.Slot.Clock == nil {
		cfg.Slot.Clock = time.Now
	}
	if cfg.Slot.Rand == nil {
		cfg.Slot.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Slot.Logger == nil {
		cfg.Slot.Logger = logger.Default()
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = domain.DefaultSlotName
	}
	return &Registry{
		codec:   codec,
		cfg:     cfg,
		log:     cfg.Slot.Logger.With("component", "registry"),
		metrics: cfg.Metrics,
		groups:  make(map[int32]*slot.Group),
	}
}

// ============================================================================
// Lookup
// ============================================================================

// IDs returns the known slot ids in ascending order.
func (r *Registry) IDs() []int32 {
	ids := make([]int32, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Count() int { return len(r.groups) }

func (r *Registry) Has(id int32) bool {
	_, ok := r.groups[id]
	return ok
}

// Group returns the group for id.
func (r *Registry) Group(id int32) (*slot.Group, bool) {
	g, ok := r.groups[id]
	return g, ok
}

// Active returns the active group, if any.
func (r *Registry) Active() (*slot.Group, bool) {
	if r.active == 0 {
		return nil, false
	}
	return r.Group(r.active)
}

func (r *Registry) ActiveID() int32 { return r.active }

// Started reports whether UseSave has been called since the last reset.
func (r *Registry) Started() bool { return r.started }

// HeadInfos returns the newest save point of every slot, ordered by slot
// id. Slots without save points are omitted.
func (r *Registry) HeadInfos() []*domain.SaveInfo {
	heads := make([]*domain.SaveInfo, 0, len(r.groups))
	for _, id := range r.IDs() {
		if head := r.groups[id].HeadInfo(); head != nil {
			heads = append(heads, head)
		}
	}
	return heads
}

// Remove drops a slot from memory only.
func (r *Registry) Remove(id int32) bool {
	if _, ok := r.groups[id]; !ok {
		return false
	}
	delete(r.groups, id)
	if r.active == id {
		r.active = 0
		r.started = false
	}
	r.metrics.SetSlots(len(r.groups))
	return true
}

// RemoveAll drops every slot from memory and clears the active slot.
func (r *Registry) RemoveAll() {
	clear(r.groups)
	r.active = 0
	r.started = false
	r.metrics.SetSlots(0)
}

// ============================================================================
// Slot lifecycle
// ============================================================================

// UseSave activates slot slotID and adopts save point serialID. A zero
// slotID allocates a fresh slot; a zero serialID starts from an empty
// payload.
func (r *Registry) UseSave(slotID, serialID int32) (*payload.Store, error) {
	if slotID < 0 {
		return nil, domain.ErrInvalidArgument.WithDetailsf("slot id %d", slotID)
	}
	if slotID == 0 {
		slotID = r.newSlotID()
	}

	g, ok := r.groups[slotID]
	if !ok {
		g = slot.New(slotID, r.cfg.DefaultName, r.codec, r.cfg.Slot)
	}
	store, err := g.UseSavePoint(serialID)
	r.metrics.ObserveLoad("use", err)
	if err != nil {
		return nil, err
	}

	r.groups[slotID] = g
	r.active = slotID
	r.started = true
	r.metrics.SetSlots(len(r.groups))
	r.log.Debug("slot activated", "slot_id", slotID, "serial_id", serialID)
	return store, nil
}

func (r *Registry) newSlotID() int32 {
	now := r.cfg.Slot.Clock()
	for attempt := 0; ; attempt++ {
		id := domain.NewSlotID(now.Add(time.Duration(attempt)*100), r.cfg.Slot.Rand)
		if !r.Has(id) {
			return id
		}
	}
}

// SlotDir returns the directory holding slot id under rootDir.
func SlotDir(rootDir string, id int32) string {
	return filepath.Join(rootDir, strconv.FormatInt(int64(id), 10))
}

// SaveActive writes a new save point for the active slot.
func (r *Registry) SaveActive(rootDir string) (*domain.SaveInfo, error) {
	g, ok := r.Active()
	if !ok {
		return nil, domain.ErrSlotNotFound.WithDetails("no active slot")
	}
	start := time.Now()
	info, err := g.Save(SlotDir(rootDir, g.ID()))
	r.metrics.ObserveSave(time.Since(start), err)
	return info, err
}

// Save writes a new save point for the active slot. Failures are logged.
func (r *Registry) Save(rootDir string) bool {
	info, err := r.SaveActive(rootDir)
	if err != nil {
		r.log.Error("save failed",
			"slot_id", r.active,
			"path", SlotDir(rootDir, r.active),
			"error", err,
			"code", domain.GetErrorCode(err),
		)
		return false
	}
	r.log.Info("game saved", "slot_id", info.SlotID, "serial_id", info.SerialID, "path", info.InfoPath())
	return true
}

// LoadAll clears the registry and loads every numeric slot directory
// under rootDir. The highest slot id becomes active. Slots that fail to
// load or hold no save points are logged and skipped.
func (r *Registry) LoadAll(rootDir string) error {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		r.metrics.ObserveLoad("scan", err)
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNotFound.WithDetails(rootDir)
		}
		return domain.ErrIO.WithDetails(rootDir).Wrap(err)
	}

	r.RemoveAll()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil || id <= 0 {
			continue
		}
		slotID := int32(id)
		dir := filepath.Join(rootDir, e.Name())

		g := slot.New(slotID, r.cfg.DefaultName, r.codec, r.cfg.Slot)
		err = g.Load(dir)
		r.metrics.ObserveLoad("scan", err)
		if err != nil {
			r.log.Warn("skip slot", "slot_id", slotID, "path", dir, "error", err, "code", domain.GetErrorCode(err))
			continue
		}
		if g.HeadInfo() == nil {
			r.log.Debug("skip empty slot", "slot_id", slotID, "path", dir)
			continue
		}
		r.groups[slotID] = g
		r.active = max(r.active, slotID)
	}

	r.metrics.SetSlots(len(r.groups))
	r.log.Info("save root loaded", "path", rootDir, "slots", len(r.groups), "active_slot_id", r.active)
	return nil
}

// Load is LoadAll with failures logged.
func (r *Registry) Load(rootDir string) bool {
	if err := r.LoadAll(rootDir); err != nil {
		r.log.Error("load failed", "path", rootDir, "error", err, "code", domain.GetErrorCode(err))
		return false
	}
	return true
}

// Update advances play time of the active slot once a game has started.
func (r *Registry) Update(dt, realDt float32) {
	if !r.started {
		return
	}
	if g, ok := r.Active(); ok {
		g.Update(dt, realDt)
		r.metrics.SetPlayTime(g.PlayTime())
	}
}

// DeleteSlot removes slot id from memory and deletes its directory.
func (r *Registry) DeleteSlot(rootDir string, id int32) error {
	dir := SlotDir(rootDir, id)
	_, known := r.groups[id]
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return domain.ErrIO.WithDetails(dir).Wrap(err)
		}
		if !known {
			return domain.ErrSlotNotFound.WithDetailsf("slot %d", id)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return domain.ErrIO.WithDetails(dir).Wrap(err)
	}
	r.Remove(id)
	r.log.Info("slot deleted", "slot_id", id, "path", dir)
	return nil
}

// SlotStats reports save point counts per slot for metrics.
func (r *Registry) SlotStats() []metric.SlotStat {
	stats := make([]metric.SlotStat, 0, len(r.groups))
	for _, id := range r.IDs() {
		stats = append(stats, metric.SlotStat{SlotID: id, SavePoints: len(r.groups[id].Infos())})
	}
	return stats
}
