package backup

import (
	"archive/tar"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
)

const (
	DefaultDirName    = "Backup"
	DefaultMaxBackups = 5

	PrefixBackup     = "Backup_"
	PrefixPreRestore = "PreRestore_"
	Extension        = ".tar.gz"

	macSize      = sha256.Size
	stagingGlob  = ".restore-"
	tempSuffix   = ".tmp"
	maxEntrySize = 1 << 30
)

// Kind distinguishes manual backups from pre-restore snapshots.
type Kind string

const (
	KindBackup     Kind = "backup"
	KindPreRestore Kind = "pre-restore"
)

// Info describes one archive.
type Info struct {
	Name      string    `json:"name" yaml:"name"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Files     int       `json:"files,omitempty" yaml:"files,omitempty"`
}

// Config configures a Manager.
type Config struct {
	// Root is the save root that gets archived.
	Root string

	// DirName is the backup directory under Root. Defaults to "Backup".
	DirName string

	// MaxBackups caps each kind of archive. Defaults to 5.
	MaxBackups int

	// Key authenticates archives. Must be at least 16 bytes.
	Key []byte

	Clock   func() time.Time
	Entropy io.Reader
	Logger  logger.Logger
}

// Manager creates, lists, and restores archives.
type Manager struct {
	cfg    Config
	dir    string
	log    logger.Logger
	rename func(oldpath, newpath string) error
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Root == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("backup: root is required")
	}
	if len(cfg.Key) < 16 {
		return nil, domain.ErrInvalidArgument.WithDetails("backup: key must be at least 16 bytes")
	}
	if cfg.DirName == "" {
		cfg.DirName = DefaultDirName
	}
	if strings.ContainsAny(cfg.DirName, `/\`) || cfg.DirName == "." || cfg.DirName == ".." {
		return nil, domain.ErrInvalidArgument.WithDetailsf("backup: dir name %q", cfg.DirName)
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Entropy == nil {
		cfg.Entropy = ulid.DefaultEntropy()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Manager{
		cfg:    cfg,
		dir:    filepath.Join(cfg.Root, cfg.DirName),
		log:    cfg.Logger.With("component", "backup"),
		rename: os.Rename,
	}, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Create archives the save root as a new Backup_ archive and evicts the
// oldest backups beyond MaxBackups.
func (m *Manager) Create() (*Info, error) {
	info, err := m.create(PrefixBackup)
	if err != nil {
		return nil, err
	}
	m.evict(PrefixBackup)
	return info, nil
}

func (m *Manager) create(prefix string) (*Info, error) {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return nil, domain.ErrIO.WithDetails(m.dir).Wrap(err)
	}

	now := m.cfg.Clock()
	id, err := ulid.New(ulid.Timestamp(now), m.cfg.Entropy)
	if err != nil {
		return nil, domain.ErrIO.WithDetails("generate backup id").Wrap(err)
	}
	name := prefix + id.String() + Extension

	f, err := os.CreateTemp(m.dir, name+".*"+tempSuffix)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(m.dir).Wrap(err)
	}
	tempPath := f.Name()
	defer os.Remove(tempPath)

	mac := hmac.New(sha256.New, m.cfg.Key)
	files, err := m.writeArchive(io.MultiWriter(f, mac))
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Write(mac.Sum(nil)); err != nil {
		f.Close()
		return nil, domain.ErrIO.WithDetails(tempPath).Wrap(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, domain.ErrIO.WithDetails(tempPath).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return nil, domain.ErrIO.WithDetails(tempPath).Wrap(err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(tempPath).Wrap(err)
	}
	finalPath := filepath.Join(m.dir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, domain.ErrIO.WithDetails(finalPath).Wrap(err)
	}

	m.log.Info("backup created", "name", name, "files", files, "size", stat.Size())
	return &Info{
		Name:      name,
		Kind:      kindOf(name),
		Size:      stat.Size(),
		CreatedAt: ulid.Time(id.Time()).UTC(),
		Files:     files,
	}, nil
}

// writeArchive streams a tar.gz of the save root into w.
func (m *Manager) writeArchive(w io.Writer) (int, error) {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return 0, domain.ErrIO.WithDetails("gzip writer").Wrap(err)
	}
	tw := tar.NewWriter(gz)

	files := 0
	walkErr := filepath.WalkDir(m.cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == m.cfg.Root {
				return fs.SkipAll
			}
			return err
		}
		rel, err := filepath.Rel(m.cfg.Root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if m.excluded(rel, d) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uname, hdr.Gname = "", ""
		hdr.Uid, hdr.Gid = 0, 0
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(tw, src); err != nil {
			return err
		}
		files++
		return nil
	})
	if walkErr != nil {
		return 0, domain.ErrIO.WithDetails(m.cfg.Root).Wrap(walkErr)
	}
	if err := tw.Close(); err != nil {
		return 0, domain.ErrIO.WithDetails("tar").Wrap(err)
	}
	if err := gz.Close(); err != nil {
		return 0, domain.ErrIO.WithDetails("gzip").Wrap(err)
	}
	return files, nil
}

// excluded reports whether a path relative to the root stays out of
// archives and survives restores.
func (m *Manager) excluded(rel string, d fs.DirEntry) bool {
	top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if top == m.cfg.DirName || strings.HasPrefix(top, stagingGlob) {
		return true
	}
	return !d.IsDir() && strings.HasSuffix(d.Name(), tempSuffix)
}

// List returns every archive, newest first.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.ErrIO.WithDetails(m.dir).Wrap(err)
	}

	var infos []*Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := parseName(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			Name:      e.Name(),
			Kind:      kindOf(e.Name()),
			Size:      fi.Size(),
			CreatedAt: ulid.Time(id.Time()).UTC(),
		})
	}
	slices.SortFunc(infos, func(a, b *Info) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return infos, nil
}

func parseName(name string) (ulid.ULID, bool) {
	var rest string
	switch {
	case strings.HasPrefix(name, PrefixBackup):
		rest = name[len(PrefixBackup):]
	case strings.HasPrefix(name, PrefixPreRestore):
		rest = name[len(PrefixPreRestore):]
	default:
		return ulid.ULID{}, false
	}
	if !strings.HasSuffix(rest, Extension) {
		return ulid.ULID{}, false
	}
	id, err := ulid.ParseStrict(strings.TrimSuffix(rest, Extension))
	if err != nil {
		return ulid.ULID{}, false
	}
	return id, true
}

func kindOf(name string) Kind {
	if strings.HasPrefix(name, PrefixPreRestore) {
		return KindPreRestore
	}
	return KindBackup
}

// evict removes the oldest archives with prefix beyond MaxBackups.
func (m *Manager) evict(prefix string) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.log.Warn("list backups for eviction", "path", m.dir, "error", err)
		return
	}
	var names []string
	for _, e := range entries {
		if _, ok := parseName(e.Name()); ok && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for len(names) > m.cfg.MaxBackups {
		p := filepath.Join(m.dir, names[0])
		if err := os.Remove(p); err != nil {
			m.log.Warn("evict backup", "path", p, "error", err)
		} else {
			m.log.Debug("evicted backup", "name", names[0])
		}
		names = names[1:]
	}
}

// Verify checks an archive's HMAC trailer and that it unpacks cleanly.
func (m *Manager) Verify(name string) error {
	body, err := m.readVerified(name)
	if err != nil {
		return err
	}
	return walkArchive(body, func(*tar.Header, io.Reader) error { return nil })
}

func (m *Manager) readVerified(name string) ([]byte, error) {
	if _, ok := parseName(name); !ok || filepath.Base(name) != name {
		return nil, domain.ErrBackupNotFound.WithDetails(name)
	}
	p := filepath.Join(m.dir, name)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrBackupNotFound.WithDetails(name)
		}
		return nil, domain.ErrIO.WithDetails(p).Wrap(err)
	}
	if len(data) < macSize {
		return nil, domain.ErrIntegrity.WithDetailsf("%s: archive too short", name)
	}
	body, trailer := data[:len(data)-macSize], data[len(data)-macSize:]
	if !hmac.Equal(sum(m.cfg.Key, body), trailer) {
		return nil, domain.ErrIntegrity.WithDetailsf("%s: archive mac mismatch", name)
	}
	return body, nil
}

func sum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// walkArchive visits every entry of a verified tar.gz body. Entry names
// are validated as relative paths that stay inside the root.
func walkArchive(body []byte, fn func(*tar.Header, io.Reader) error) error {
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return domain.ErrCorrupted.WithDetails("backup gzip").Wrap(err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return domain.ErrCorrupted.WithDetails("backup tar").Wrap(err)
		}
		if !safeName(hdr.Name) {
			return domain.ErrCorrupted.WithDetailsf("backup entry %q escapes root", hdr.Name)
		}
		if hdr.Size > maxEntrySize {
			return domain.ErrCorrupted.WithDetailsf("backup entry %q too large", hdr.Name)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func safeName(name string) bool {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if clean == "." || path.IsAbs(clean) || strings.HasPrefix(clean, "../") || clean == ".." {
		return false
	}
	return !strings.Contains(clean, `\`)
}

// Restore replaces the save root's contents with an archive.
//
// The archive is verified and unpacked into a staging directory first.
// The current state is then captured as a PreRestore_ archive and the
// existing entries are moved aside before the staged entries are moved
// in. A failed move puts the previous entries back. It returns the
// pre-restore archive.
func (m *Manager) Restore(name string) (*Info, error) {
	body, err := m.readVerified(name)
	if err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(m.cfg.Root, stagingGlob+"*")
	if err != nil {
		return nil, domain.ErrIO.WithDetails(m.cfg.Root).Wrap(err)
	}
	defer os.RemoveAll(staging)

	if err := extract(body, staging); err != nil {
		return nil, err
	}

	pre, err := m.create(PrefixPreRestore)
	if err != nil {
		return nil, err
	}
	m.evict(PrefixPreRestore)

	aside, err := os.MkdirTemp(m.cfg.Root, stagingGlob+"prev-*")
	if err != nil {
		return pre, domain.ErrIO.WithDetails(m.cfg.Root).Wrap(err)
	}
	moved, err := m.moveAside(aside)
	if err != nil {
		m.rollback(aside, moved, nil, pre)
		return pre, err
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		m.rollback(aside, moved, nil, pre)
		return pre, domain.ErrIO.WithDetails(staging).Wrap(err)
	}
	placed := make([]string, 0, len(entries))
	for _, e := range entries {
		to := filepath.Join(m.cfg.Root, e.Name())
		if err := m.rename(filepath.Join(staging, e.Name()), to); err != nil {
			m.rollback(aside, moved, placed, pre)
			return pre, domain.ErrIO.WithDetails(to).Wrap(err)
		}
		placed = append(placed, e.Name())
	}
	if err := os.RemoveAll(aside); err != nil {
		m.log.Warn("previous state not removed", "path", aside, "error", err)
	}

	m.log.Info("backup restored", "name", name, "pre_restore", pre.Name)
	return pre, nil
}

func extract(body []byte, dest string) error {
	return walkArchive(body, func(hdr *tar.Header, r io.Reader) error {
		target := filepath.Join(dest, filepath.FromSlash(path.Clean(strings.TrimSuffix(hdr.Name, "/"))))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return domain.ErrIO.WithDetails(target).Wrap(err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return domain.ErrIO.WithDetails(target).Wrap(err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
			if err != nil {
				return domain.ErrIO.WithDetails(target).Wrap(err)
			}
			if _, err := io.CopyN(f, r, hdr.Size); err != nil {
				f.Close()
				return domain.ErrCorrupted.WithDetails(hdr.Name).Wrap(err)
			}
			if err := f.Close(); err != nil {
				return domain.ErrIO.WithDetails(target).Wrap(err)
			}
		default:
			return domain.ErrCorrupted.WithDetailsf("backup entry %q has unsupported type %c", hdr.Name, hdr.Typeflag)
		}
		return nil
	})
}

// moveAside renames every restorable root entry into dir and returns
// the names it moved.
func (m *Manager) moveAside(dir string) ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Root)
	if err != nil {
		return nil, domain.ErrIO.WithDetails(m.cfg.Root).Wrap(err)
	}
	var moved []string
	for _, e := range entries {
		if e.Name() == m.cfg.DirName || strings.HasPrefix(e.Name(), stagingGlob) {
			continue
		}
		from := filepath.Join(m.cfg.Root, e.Name())
		if err := m.rename(from, filepath.Join(dir, e.Name())); err != nil {
			return moved, domain.ErrIO.WithDetails(from).Wrap(err)
		}
		moved = append(moved, e.Name())
	}
	return moved, nil
}

// rollback removes the placed entries and puts the moved ones back.
// When that fails the aside directory is kept and pre is the recovery
// path.
func (m *Manager) rollback(aside string, moved, placed []string, pre *Info) {
	ok := true
	for _, n := range placed {
		p := filepath.Join(m.cfg.Root, n)
		if err := os.RemoveAll(p); err != nil {
			m.log.Error("rollback: remove restored entry", "path", p, "error", err)
			ok = false
		}
	}
	for _, n := range moved {
		to := filepath.Join(m.cfg.Root, n)
		if err := os.Rename(filepath.Join(aside, n), to); err != nil {
			m.log.Error("rollback: put back entry", "path", to, "error", err)
			ok = false
		}
	}
	if !ok {
		m.log.Error("restore left the save root incomplete",
			"previous_state", aside, "pre_restore", pre.Name)
		return
	}
	if err := os.RemoveAll(aside); err != nil {
		m.log.Warn("rollback dir not removed", "path", aside, "error", err)
	}
	m.log.Warn("restore rolled back", "pre_restore", pre.Name)
}

// String implements fmt.Stringer for log output.
func (i *Info) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", i.Name, i.Kind, i.Size)
}
