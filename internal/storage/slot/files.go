package slot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/pkg/binio"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640

	tempSuffix = ".tmp"
)

// writeFileAtomic writes data to dir/name through a synced temporary file
// and a rename, so name either holds the old content or all of data.
func writeFileAtomic(dir, name string, data []byte) error {
	f, err := os.CreateTemp(dir, name+".*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()
	defer os.Remove(tempPath)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Chmod(filePerm); err != nil {
		f.Close()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tempPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// encodeDataFile frames an encrypted payload with its plaintext hash.
func encodeDataFile(hash string, blob []byte) ([]byte, error) {
	w := binio.NewWriter()
	w.WriteString(hash)
	w.WriteBytes(blob)
	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// decodeDataFile splits a data file into hash and encrypted payload.
func decodeDataFile(data []byte) (hash string, blob []byte, err error) {
	r := binio.NewReader(data)
	hash = r.ReadString()
	blob = r.ReadBytes()
	if err := r.Err(); err != nil {
		return "", nil, domain.ErrCorrupted.WithDetails("data file").Wrap(err)
	}
	if n := r.Remaining(); n != 0 {
		return "", nil, domain.ErrCorrupted.WithDetailsf("data file has %d trailing bytes", n)
	}
	return hash, blob, nil
}

// fileSet is the save point files found in one directory, keyed by stem.
type fileSet struct {
	info  map[string]string // stem -> stamp
	data  map[string]string // stem -> stamp
	temps []string
}

func scanDir(dir string) (*fileSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fs := &fileSet{info: make(map[string]string), data: make(map[string]string)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, domain.FilePrefix) && strings.HasSuffix(name, tempSuffix) {
			fs.temps = append(fs.temps, name)
			continue
		}
		_, stamp, ok := domain.ParseFileName(name)
		if !ok {
			continue
		}
		switch filepath.Ext(name) {
		case domain.InfoExtension:
			fs.info[strings.TrimSuffix(name, domain.InfoExtension)] = stamp
		case domain.DataExtension:
			fs.data[strings.TrimSuffix(name, domain.DataExtension)] = stamp
		}
	}
	return fs, nil
}
