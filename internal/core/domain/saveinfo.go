package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/savekeep-go/pkg/binio"
)

// File naming for save points.
const (
	FilePrefix    = "GameSave"
	InfoExtension = ".info"
	DataExtension = ".dat"

	// InfoGlob matches every info file in a slot directory.
	InfoGlob = FilePrefix + "*_*" + InfoExtension

	// StampLayout is the fixed-width UTC timestamp embedded in file names.
	// The trailing millisecond field is appended separately since Go
	// layouts cannot express a zero-padded millisecond after an underscore.
	StampLayout = "20060102_150405"
)

// Reset values applied when a slot starts a new game.
const (
	DefaultPlayerName = "PlayerUNKNOWN"
	DefaultSceneName  = "Init"
	DefaultSlotName   = "NewGameSave"
)

// ticksAtUnixEpoch is the number of 100ns ticks between 0001-01-01 and
// 1970-01-01 UTC.
const ticksAtUnixEpoch int64 = 621_355_968_000_000_000

// SaveInfo is the metadata record of a single save point.
type SaveInfo struct {
	SlotID      int32     `json:"slot_id" yaml:"slot_id"`
	SerialID    int32     `json:"serial_id" yaml:"serial_id"`
	Name        string    `json:"name" yaml:"name"`
	PlayTime    float32   `json:"play_time" yaml:"play_time"`
	SaveTime    time.Time `json:"save_time" yaml:"save_time"`
	GameVersion string    `json:"game_version" yaml:"game_version"`
	PlayerName  string    `json:"player_name" yaml:"player_name"`
	PlayerLevel int32     `json:"player_level" yaml:"player_level"`
	SceneName   string    `json:"scene_name" yaml:"scene_name"`
	DataFile    string    `json:"data_file" yaml:"data_file"`
	Screenshot  []byte    `json:"-" yaml:"-"`

	// Dir is the directory the record was loaded from or saved into.
	// It is not persisted.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Stem returns the file name without extension shared by the info and
// data files: GameSave{serial}_{stamp}.
func (s *SaveInfo) Stem() string {
	return fmt.Sprintf("%s%d_%s", FilePrefix, s.SerialID, FormatStamp(s.SaveTime))
}

// InfoFileName returns the info file's base name.
func (s *SaveInfo) InfoFileName() string {
	return s.Stem() + InfoExtension
}

// DataFileName returns the data file's base name derived from the
// record. Readers should use DataPath, which honors the stored DataFile.
func (s *SaveInfo) DataFileName() string {
	return s.Stem() + DataExtension
}

// InfoPath returns the absolute info file path.
func (s *SaveInfo) InfoPath() string {
	return filepath.Join(s.Dir, s.InfoFileName())
}

// DataPath returns the data file path from the stored DataFile name.
func (s *SaveInfo) DataPath() string {
	name := s.DataFile
	if name == "" {
		name = s.DataFileName()
	}
	return filepath.Join(s.Dir, name)
}

// HasScreenshot reports whether a screenshot blob is attached.
func (s *SaveInfo) HasScreenshot() bool {
	return len(s.Screenshot) > 0
}

// Clone returns a deep copy.
func (s *SaveInfo) Clone() *SaveInfo {
	c := *s
	if s.Screenshot != nil {
		c.Screenshot = append([]byte(nil), s.Screenshot...)
	}
	return &c
}

// MarshalBinary encodes the record in the info file format.
func (s *SaveInfo) MarshalBinary() ([]byte, error) {
	w := binio.NewWriter()
	w.WriteInt32(s.SlotID)
	w.WriteInt32(s.SerialID)
	w.WriteString(s.Name)
	w.WriteFloat32(s.PlayTime)
	w.WriteInt64(TimeToTicks(s.SaveTime))
	w.WriteString(s.GameVersion)
	w.WriteString(s.PlayerName)
	w.WriteInt32(s.PlayerLevel)
	w.WriteString(s.SceneName)
	w.WriteString(s.DataFile)
	w.WriteBool(s.HasScreenshot())
	if s.HasScreenshot() {
		w.WriteBytes(s.Screenshot)
	}
	if err := w.Err(); err != nil {
		return nil, ErrInvalidValue.WithDetails("save info").Wrap(err)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary decodes an info file. Dir is left untouched.
func (s *SaveInfo) UnmarshalBinary(data []byte) error {
	r := binio.NewReader(data)
	var out SaveInfo
	out.SlotID = r.ReadInt32()
	out.SerialID = r.ReadInt32()
	out.Name = r.ReadString()
	out.PlayTime = r.ReadFloat32()
	out.SaveTime = TicksToTime(r.ReadInt64())
	out.GameVersion = r.ReadString()
	out.PlayerName = r.ReadString()
	out.PlayerLevel = r.ReadInt32()
	out.SceneName = r.ReadString()
	out.DataFile = r.ReadString()
	if r.ReadBool() {
		out.Screenshot = r.ReadBytes()
	}
	if err := r.Err(); err != nil {
		return ErrCorrupted.WithDetails("save info").Wrap(err)
	}
	if strings.ContainsAny(out.DataFile, `/\`) {
		return ErrCorrupted.WithDetailsf("data file name %q is not a base name", out.DataFile)
	}
	out.Dir = s.Dir
	*s = out
	return nil
}

// FormatStamp renders t as the fixed-width UTC stamp yyyyMMdd_HHmmss_fff.
func FormatStamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%03d", t.Format(StampLayout), t.Nanosecond()/int(time.Millisecond))
}

// ParseStamp parses a stamp produced by FormatStamp.
func ParseStamp(s string) (time.Time, error) {
	i := strings.LastIndexByte(s, '_')
	if i < 0 || len(s)-i-1 != 3 {
		return time.Time{}, ErrInvalidArgument.WithDetailsf("stamp %q", s)
	}
	t, err := time.ParseInLocation(StampLayout, s[:i], time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidArgument.WithDetailsf("stamp %q", s).Wrap(err)
	}
	ms, err := strconv.Atoi(s[i+1:])
	if err != nil || ms < 0 {
		return time.Time{}, ErrInvalidArgument.WithDetailsf("stamp %q", s)
	}
	return t.Add(time.Duration(ms) * time.Millisecond), nil
}

// ParseFileName extracts the serial id and stamp from a save point file
// name such as GameSave123_20240102_030405_006.info.
func ParseFileName(name string) (serialID int32, stamp string, ok bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(name, InfoExtension), DataExtension)
	if !strings.HasPrefix(base, FilePrefix) {
		return 0, "", false
	}
	rest := base[len(FilePrefix):]
	i := strings.IndexByte(rest, '_')
	if i <= 0 {
		return 0, "", false
	}
	n, err := strconv.ParseInt(rest[:i], 10, 32)
	if err != nil {
		return 0, "", false
	}
	serialID = int32(n)
	stamp = rest[i+1:]
	if _, err := ParseStamp(stamp); err != nil {
		return 0, "", false
	}
	return serialID, stamp, true
}

// TimeToTicks converts t to 100ns ticks since 0001-01-01 UTC.
func TimeToTicks(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()/100 + ticksAtUnixEpoch
}

// TicksToTime is the inverse of TimeToTicks.
func TicksToTime(ticks int64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	d := ticks - ticksAtUnixEpoch
	return time.Unix(d/10_000_000, (d%10_000_000)*100).UTC()
}
