package slot

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

// Prune deletes the oldest save points in dir beyond MaxSavePoints,
// removing info and data files of a stem together, plus data files
// left without an info file. It returns the number of save points removed.
func (g *Group) Prune(dir string) (int, error) {
	files, err := scanDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, domain.ErrIO.WithDetails(dir).Wrap(err)
	}

	stems := make([]string, 0, len(files.info))
	for stem := range files.info {
		stems = append(stems, stem)
	}
	// Fixed-width stamps make lexical order chronological.
	slices.SortFunc(stems, func(a, b string) int {
		if c := strings.Compare(files.info[a], files.info[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	var errs []error
	removed := make(map[string]bool)
	if excess := len(stems) - g.cfg.MaxSavePoints; excess > 0 {
		for _, stem := range stems[:excess] {
			if err := removeStem(dir, stem); err != nil {
				errs = append(errs, err)
				continue
			}
			removed[stem] = true
		}
	}

	for stem := range files.data {
		if _, ok := files.info[stem]; ok {
			continue
		}
		path := filepath.Join(dir, stem+domain.DataExtension)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		g.log.Debug("removed orphan data file", "path", path)
	}

	if len(removed) > 0 {
		g.infos = slices.DeleteFunc(g.infos, func(info *domain.SaveInfo) bool {
			return filepath.Clean(info.Dir) == filepath.Clean(dir) && removed[info.Stem()]
		})
		g.log.Info("pruned save points", "path", dir, "removed", len(removed), "kept", len(stems)-len(removed))
	}

	if err := errors.Join(errs...); err != nil {
		return len(removed), domain.ErrIO.WithDetails(dir).Wrap(err)
	}
	return len(removed), nil
}

func removeStem(dir, stem string) error {
	for _, ext := range []string{domain.InfoExtension, domain.DataExtension} {
		if err := os.Remove(filepath.Join(dir, stem+ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
