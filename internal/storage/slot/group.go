package slot

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/storage/payload"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/pkg/crypto/envelope"
)

// DefaultMaxSavePoints is the per-slot retention cap.
const DefaultMaxSavePoints = 10

// Payload keys that, when present, override the tracked stats at save time.
const (
	KeyPlayTime    = "PlayTime"
	KeyPlayerName  = "PlayerName"
	KeyPlayerLevel = "PlayerLevel"
	KeySceneName   = "SceneName"
)

// ScreenshotFunc captures an encoded screenshot for a new save point.
type ScreenshotFunc func() ([]byte, error)

// Config configures a Group.
type Config struct {
	// MaxSavePoints caps the save points kept on disk. Defaults to
	// DefaultMaxSavePoints.
	MaxSavePoints int

	// AutoPrune applies retention after every successful save.
	AutoPrune bool

	// GameVersion is stamped into new save points.
	GameVersion string

	Screenshot ScreenshotFunc
	Clock      func() time.Time
	Rand       domain.Rand
	Logger     logger.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxSavePoints <= 0 {
		c.MaxSavePoints = DefaultMaxSavePoints
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.Logger == nil {
		c.Logger = logger.Default()
	}
	return c
}

// Stats is the transient game state snapshotted into each save point.
type Stats struct {
	PlayTime    float32
	PlayerName  string
	PlayerLevel int32
	SceneName   string
}

func defaultStats() Stats {
	return Stats{
		PlayerName: domain.DefaultPlayerName,
		SceneName:  domain.DefaultSceneName,
	}
}

// VerifyResult is the outcome of checking one save point.
type VerifyResult struct {
	Info *domain.SaveInfo
	Err  error
}

// Group owns one slot. It is not safe for concurrent use.
type Group struct {
	id    int32
	name  string
	codec *envelope.Codec
	cfg   Config
	log   logger.Logger

	store  *payload.Store
	infos  []*domain.SaveInfo // newest first
	active int32
	stats  Stats
}

// New creates an empty group for slot id.
func New(id int32, name string, codec *envelope.Codec, cfg Config) *Group {
	cfg = cfg.withDefaults()
	if name == "" {
		name = domain.DefaultSlotName
	}
	log := cfg.Logger.With("slot_id", id)
	return &Group{
		id:    id,
		name:  name,
		codec: codec,
		cfg:   cfg,
		log:   log,
		store: payload.New(payload.WithLogger(log)),
		stats: defaultStats(),
	}
}

func (g *Group) ID() int32 { return g.id }

func (g *Group) Name() string { return g.name }

func (g *Group) SetName(name string) { g.name = name }

// PlayTime returns the accumulated unscaled play time in seconds.
func (g *Group) PlayTime() float32 { return g.stats.PlayTime }

func (g *Group) Stats() Stats { return g.stats }

// Payload returns the active payload. The pointer stays valid across
// UseSavePoint calls.
func (g *Group) Payload() *payload.Store { return g.store }

// ActiveSerial returns the serial id of the save point the payload was
// loaded from or last saved to, or 0 for a fresh game.
func (g *Group) ActiveSerial() int32 { return g.active }

// IsValid reports whether the group has an id and a name.
func (g *Group) IsValid() bool {
	return g.id > 0 && g.name != ""
}

// HeadInfo returns the newest save point, or nil.
func (g *Group) HeadInfo() *domain.SaveInfo {
	if len(g.infos) == 0 {
		return nil
	}
	return g.infos[0]
}

// Infos returns the save points, newest first. The records must not be
// modified.
func (g *Group) Infos() []*domain.SaveInfo {
	return slices.Clone(g.infos)
}

// Info returns the save point with the given serial id.
func (g *Group) Info(serialID int32) (*domain.SaveInfo, bool) {
	for _, info := range g.infos {
		if info.SerialID == serialID {
			return info, true
		}
	}
	return nil, false
}

// SetState replaces the tracked player name, level, and scene.
func (g *Group) SetState(playerName string, level int32, scene string) {
	g.stats.PlayerName = playerName
	g.stats.PlayerLevel = level
	g.stats.SceneName = scene
}

// Update accumulates unscaled play time.
func (g *Group) Update(_, realDt float32) {
	g.stats.PlayTime += realDt
}

// Load reads every info file in dir. Unreadable records are logged and
// skipped; leftover temporary files from an interrupted save are removed.
func (g *Group) Load(dir string) error {
	files, err := scanDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrSlotNotFound.WithDetails(dir)
		}
		return domain.ErrIO.WithDetails(dir).Wrap(err)
	}

	for _, name := range files.temps {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			g.log.Warn("remove stale temp file", "path", path, "error", err)
		} else {
			g.log.Debug("removed stale temp file", "path", path)
		}
	}

	infos := make([]*domain.SaveInfo, 0, len(files.info))
	seen := make(map[int32]bool, len(files.info))
	for stem := range files.info {
		path := filepath.Join(dir, stem+domain.InfoExtension)
		info, err := readInfo(path)
		if err != nil {
			g.log.Warn("skip unreadable save info", "path", path, "error", err, "code", domain.GetErrorCode(err))
			continue
		}
		if info.SlotID != g.id {
			g.log.Warn("skip save info from another slot", "path", path, "found_slot_id", info.SlotID)
			continue
		}
		if seen[info.SerialID] {
			g.log.Warn("skip duplicate save point", "path", path, "serial_id", info.SerialID)
			continue
		}
		seen[info.SerialID] = true
		info.Dir = dir
		infos = append(infos, info)
	}
	sortNewestFirst(infos)

	g.infos = infos
	if head := g.HeadInfo(); head != nil && head.Name != "" {
		g.name = head.Name
	}
	g.log.Debug("slot loaded", "path", dir, "save_points", len(infos))
	return nil
}

func readInfo(path string) (*domain.SaveInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(path).Wrap(err)
	}
	info := &domain.SaveInfo{}
	if err := info.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return info, nil
}

func sortNewestFirst(infos []*domain.SaveInfo) {
	slices.SortStableFunc(infos, func(a, b *domain.SaveInfo) int {
		if c := b.SaveTime.Compare(a.SaveTime); c != 0 {
			return c
		}
		return strings.Compare(b.Stem(), a.Stem())
	})
}

// UseSavePoint makes a save point the active payload and returns it.
//
// serialID 0 starts a new game: stats reset and the payload is cleared.
// Otherwise the save point's data file is read, verified, and decoded into
// a fresh store that replaces the active payload only on success.
func (g *Group) UseSavePoint(serialID int32) (*payload.Store, error) {
	if serialID == 0 {
		g.stats = defaultStats()
		g.store.Clear()
		g.active = 0
		return g.store, nil
	}

	info, ok := g.Info(serialID)
	if !ok {
		return nil, domain.ErrSavePointNotFound.WithDetailsf("slot %d serial %d", g.id, serialID)
	}

	fresh, err := g.readPayload(info)
	if err != nil {
		return nil, err
	}

	g.store.ReplaceWith(fresh)
	g.stats = Stats{
		PlayTime:    info.PlayTime,
		PlayerName:  info.PlayerName,
		PlayerLevel: info.PlayerLevel,
		SceneName:   info.SceneName,
	}
	g.active = serialID
	return g.store, nil
}

func (g *Group) readPayload(info *domain.SaveInfo) (*payload.Store, error) {
	path := info.DataPath()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSavePointNotFound.WithDetails(path).Wrap(err)
		}
		return nil, domain.ErrIO.WithDetails(path).Wrap(err)
	}

	hash, blob, err := decodeDataFile(raw)
	if err != nil {
		return nil, err
	}

	plain, err := g.codec.Decode(blob)
	if err != nil {
		return nil, codecError(path, err)
	}
	if !envelope.VerifyHash(plain, hash) {
		return nil, domain.ErrIntegrity.WithDetailsf("%s: payload hash mismatch", path)
	}

	fresh := payload.New(payload.WithLogger(g.log))
	if err := fresh.UnmarshalBinary(plain); err != nil {
		return nil, err
	}
	return fresh, nil
}

func codecError(path string, err error) error {
	if errors.Is(err, envelope.ErrIntegrity) {
		return domain.ErrIntegrity.WithDetails(path).Wrap(err)
	}
	return domain.ErrCrypto.WithDetails(path).Wrap(err)
}

// Save writes the active payload as a new save point in dir and returns
// its record. The data file is written before the info file, so a crash
// never leaves an info file without its data.
func (g *Group) Save(dir string) (*domain.SaveInfo, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, domain.ErrIO.WithDetails(dir).Wrap(err)
	}

	stats := g.currentStats()
	info := &domain.SaveInfo{
		SlotID:      g.id,
		SerialID:    g.newSerialID(),
		Name:        g.name,
		PlayTime:    stats.PlayTime,
		SaveTime:    g.nextSaveTime(),
		GameVersion: g.cfg.GameVersion,
		PlayerName:  stats.PlayerName,
		PlayerLevel: stats.PlayerLevel,
		SceneName:   stats.SceneName,
		Screenshot:  g.captureScreenshot(),
		Dir:         dir,
	}
	info.DataFile = info.DataFileName()

	plain, err := g.store.MarshalBinary()
	if err != nil {
		return nil, err
	}
	blob, err := g.codec.Encode(plain)
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("encode payload").Wrap(err)
	}
	dataFile, err := encodeDataFile(envelope.Hash(plain), blob)
	if err != nil {
		return nil, domain.ErrInvalidValue.WithDetails("data file").Wrap(err)
	}
	infoFile, err := info.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(dir, info.DataFile, dataFile); err != nil {
		return nil, domain.ErrIO.WithDetails(info.DataPath()).Wrap(err)
	}
	if err := writeFileAtomic(dir, info.InfoFileName(), infoFile); err != nil {
		_ = os.Remove(info.DataPath())
		return nil, domain.ErrIO.WithDetails(info.InfoPath()).Wrap(err)
	}

	g.infos = append([]*domain.SaveInfo{info}, g.infos...)
	g.active = info.SerialID
	g.log.Debug("save point written", "serial_id", info.SerialID, "path", info.InfoPath(), "play_time", info.PlayTime)

	if g.cfg.AutoPrune {
		if _, err := g.Prune(dir); err != nil {
			g.log.Warn("retention failed", "path", dir, "error", err, "code", domain.GetErrorCode(err))
		}
	}
	return info, nil
}

// currentStats overlays well-known payload keys onto the tracked stats.
func (g *Group) currentStats() Stats {
	s := g.stats
	s.PlayTime = float32(g.store.FloatOr(KeyPlayTime, float64(s.PlayTime)))
	s.PlayerName = g.store.StringOr(KeyPlayerName, s.PlayerName)
	s.PlayerLevel = int32(g.store.IntOr(KeyPlayerLevel, int64(s.PlayerLevel)))
	s.SceneName = g.store.StringOr(KeySceneName, s.SceneName)
	return s
}

// newSerialID draws ids until one is unused within the slot. Each retry
// advances the clock base by one tick so a stuck random source still
// terminates.
func (g *Group) newSerialID() int32 {
	now := g.cfg.Clock()
	for attempt := 0; ; attempt++ {
		id := domain.NewSerialID(now.Add(time.Duration(attempt)*100), g.cfg.Rand)
		if _, taken := g.Info(id); !taken {
			return id
		}
	}
}

// nextSaveTime returns the clock truncated to milliseconds, bumped past the
// newest save point so file stamps strictly increase within a slot.
func (g *Group) nextSaveTime() time.Time {
	t := g.cfg.Clock().UTC().Truncate(time.Millisecond)
	if head := g.HeadInfo(); head != nil && !t.After(head.SaveTime) {
		t = head.SaveTime.UTC().Add(time.Millisecond)
	}
	return t
}

func (g *Group) captureScreenshot() []byte {
	if g.cfg.Screenshot == nil {
		return nil
	}
	shot, err := g.cfg.Screenshot()
	if err != nil {
		g.log.Warn("screenshot capture failed", "error", err)
		return nil
	}
	return shot
}

// Verify checks every save point's data file without adopting it.
func (g *Group) Verify() []VerifyResult {
	results := make([]VerifyResult, 0, len(g.infos))
	for _, info := range g.infos {
		_, err := g.readPayload(info)
		results = append(results, VerifyResult{Info: info, Err: err})
	}
	return results
}
