package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/cli/repl"
	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/storage/payload"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
)

const historySize = 500

// ShellCommand opens an interactive session over the save root.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive session for editing and saving slots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "history", Usage: "History file (default: user config dir)"},
			&cli.BoolFlag{Name: "no-history", Usage: "Do not read or write a history file"},
		},
		Action: func(c *cli.Context) error {
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}

			var opts []repl.Option
			if !c.Bool("no-history") {
				h := repl.NewHistory(historyPath(c.String("history")), historySize)
				if err := h.Load(); err != nil {
					rt.Log.Debug("history not loaded", "error", err)
				}
				defer func() {
					if err := h.Save(); err != nil {
						rt.Log.Warn("history not saved", "error", err)
					}
				}()
				opts = append(opts, repl.WithHistory(h))
			}
			opts = append(opts, repl.WithPrompt("savekeep> "))

			r := repl.New(rt.Stdin, rt.Stdout, opts...)
			(&shell{rt: rt}).register(r)
			return r.Run(rt.Context)
		},
	}
}

func historyPath(flag string) string {
	if flag != "" {
		return flag
	}
	path, err := xdg.ConfigFile(filepath.Join("savekeep", "history"))
	if err != nil {
		return ""
	}
	return path
}

// shell holds the command set of an interactive session.
type shell struct {
	rt *Runtime
}

func (s *shell) register(r *repl.REPL) {
	for _, cmd := range []*repl.Command{
		{Name: "slots", Usage: "list slots", Run: s.slots},
		{Name: "points", Args: "[SLOT]", Usage: "list save points of a slot", Run: s.points},
		{Name: "use", Args: "SLOT [SERIAL]", Usage: "activate a save point", Run: s.use},
		{Name: "new", Usage: "start a new game in a fresh slot", Run: s.newGame},
		{Name: "name", Args: "NAME", Usage: "rename the active slot", Run: s.name},
		{Name: "state", Args: "PLAYER LEVEL SCENE", Usage: "set player state of the active slot", Run: s.state},
		{Name: "set", Args: "KEY VALUE [KIND]", Usage: "set a payload value", Run: s.set},
		{Name: "get", Args: "[KEY]", Usage: "show payload values", Run: s.get},
		{Name: "del", Args: "KEY", Usage: "delete a payload value", Run: s.del},
		{Name: "blob", Args: "KEY FILE", Usage: "store a file as a payload blob", Run: s.blob},
		{Name: "save", Usage: "write a save point for the active slot", Run: s.save},
		{Name: "load", Usage: "reload every slot from disk", Run: s.load},
		{Name: "tick", Args: "SECONDS", Usage: "advance play time and run auto-save if due", Run: s.tick},
		{Name: "autosave", Args: "on|off|INTERVAL", Usage: "configure auto-save", Run: s.autosave},
		{Name: "verify", Args: "[SLOT]", Usage: "check save point integrity", Run: s.verify},
		{Name: "prune", Args: "[SLOT]", Usage: "apply retention", Run: s.prune},
		{Name: "remove", Args: "SLOT", Usage: "delete a slot", Run: s.remove},
		{Name: "backup", Usage: "archive the save root", Run: s.backup},
		{Name: "backups", Usage: "list archives", Run: s.backups},
		{Name: "restore", Args: "NAME", Usage: "restore an archive", Run: s.restore},
	} {
		r.Register(cmd)
	}
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.rt.Stdout, format, args...)
}

func parseID(text string) (int32, error) {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidArgument.WithDetailsf("id %q", text)
	}
	return int32(n), nil
}

// optionalID parses args[0] when present.
func optionalID(args []string) (int32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return parseID(args[0])
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return domain.ErrInvalidArgument.WithDetails("usage: " + usage)
	}
	return nil
}

// activeStore returns the payload of the active slot.
func (s *shell) activeStore() (*payload.Store, error) {
	var store *payload.Store
	err := s.rt.Component.WithSlot(0, func(g *slot.Group) error {
		store = g.Payload()
		return nil
	})
	if err != nil {
		return nil, domain.ErrSlotNotFound.WithDetails("no active slot, run use or new")
	}
	return store, nil
}

func (s *shell) slots(context.Context, []string) error {
	return s.rt.Render(pointRows(s.rt.Component.HeadInfos()))
}

func (s *shell) points(_ context.Context, args []string) error {
	id, err := optionalID(args)
	if err != nil {
		return err
	}
	if id == 0 {
		id = s.rt.Component.Active()
	}
	infos, err := s.rt.Component.Infos(id)
	if err != nil {
		return err
	}
	return s.rt.Render(pointRows(infos))
}

func (s *shell) use(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "use SLOT [SERIAL]"); err != nil {
		return err
	}
	slotID, err := parseID(args[0])
	if err != nil {
		return err
	}
	var serialID int32
	if len(args) > 1 {
		if serialID, err = parseID(args[1]); err != nil {
			return err
		}
	}
	store, err := openSavePoint(s.rt.Component, slotID, serialID)
	if err != nil {
		return err
	}
	s.printf("slot %d active, %d values\n", slotID, store.Len())
	return nil
}

func (s *shell) newGame(context.Context, []string) error {
	if _, err := s.rt.Component.UseGameSave(nil); err != nil {
		return err
	}
	s.printf("slot %d active\n", s.rt.Component.Active())
	return nil
}

func (s *shell) name(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "name NAME"); err != nil {
		return err
	}
	return s.rt.Component.WithSlot(0, func(g *slot.Group) error {
		g.SetName(args[0])
		return nil
	})
}

func (s *shell) state(_ context.Context, args []string) error {
	if err := needArgs(args, 3, "state PLAYER LEVEL SCENE"); err != nil {
		return err
	}
	level, err := parseID(args[1])
	if err != nil {
		return err
	}
	return s.rt.Component.WithSlot(0, func(g *slot.Group) error {
		g.SetState(args[0], level, args[2])
		return nil
	})
}

func (s *shell) set(_ context.Context, args []string) error {
	if err := needArgs(args, 2, "set KEY VALUE [KIND]"); err != nil {
		return err
	}
	kind := payload.KindString
	if len(args) > 2 {
		k, err := payload.ParseKind(args[2])
		if err != nil {
			return err
		}
		kind = k
	}
	value, err := payload.ParseValue(kind, args[1])
	if err != nil {
		return err
	}
	store, err := s.activeStore()
	if err != nil {
		return err
	}
	return store.Set(args[0], value)
}

func (s *shell) get(_ context.Context, args []string) error {
	store, err := s.activeStore()
	if err != nil {
		return err
	}
	keys := store.Keys()
	if len(args) > 0 {
		keys = args
	}
	rows, err := valueRows(store, keys)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		rows = append(rows, blobRows(store)...)
	}
	return s.rt.Render(rows)
}

func (s *shell) del(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "del KEY"); err != nil {
		return err
	}
	store, err := s.activeStore()
	if err != nil {
		return err
	}
	if !store.Delete(args[0]) && !store.DeleteBlob(args[0]) {
		return domain.ErrNotFound.WithDetailsf("key %q", args[0])
	}
	return nil
}

func (s *shell) blob(_ context.Context, args []string) error {
	if err := needArgs(args, 2, "blob KEY FILE"); err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return domain.ErrIO.WithDetails(args[1]).Wrap(err)
	}
	store, err := s.activeStore()
	if err != nil {
		return err
	}
	return store.SetBlob(args[0], data)
}

func (s *shell) save(context.Context, []string) error {
	info, err := s.rt.Component.SaveInfo()
	if err != nil {
		return err
	}
	s.printf("saved slot %d serial %d\n", info.SlotID, info.SerialID)
	return nil
}

func (s *shell) load(context.Context, []string) error {
	if !s.rt.Component.Load() {
		return domain.ErrIO.WithDetails("load failed, see log")
	}
	s.printf("%d slots loaded\n", s.rt.Component.Count())
	return nil
}

func (s *shell) tick(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "tick SECONDS"); err != nil {
		return err
	}
	secs, err := strconv.ParseFloat(args[0], 32)
	if err != nil || secs <= 0 {
		return domain.ErrInvalidArgument.WithDetailsf("seconds %q", args[0])
	}
	if s.rt.Component.Update(float32(secs), float32(secs)) {
		s.printf("auto-saved\n")
	}
	return nil
}

func (s *shell) autosave(_ context.Context, args []string) error {
	comp := s.rt.Component
	if len(args) == 0 {
		s.printf("auto-save enabled: %t\n", comp.AutoSaveEnabled())
		return nil
	}
	switch args[0] {
	case "on":
		comp.SetAutoSave(true)
	case "off":
		comp.SetAutoSave(false)
	default:
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return domain.ErrInvalidArgument.WithDetailsf("interval %q", args[0])
		}
		comp.SetAutoSaveInterval(d)
	}
	return nil
}

func (s *shell) verify(_ context.Context, args []string) error {
	id, err := optionalID(args)
	if err != nil {
		return err
	}
	failed := 0
	for _, slotID := range slotIDs(s.rt.Component, id) {
		results, err := s.rt.Component.Verify(slotID)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				failed++
				s.printf("slot %d serial %d: %v\n", r.Info.SlotID, r.Info.SerialID, r.Err)
			}
		}
	}
	s.printf("%d failures\n", failed)
	return nil
}

func (s *shell) prune(_ context.Context, args []string) error {
	id, err := optionalID(args)
	if err != nil {
		return err
	}
	total := 0
	for _, slotID := range slotIDs(s.rt.Component, id) {
		n, err := s.rt.Component.Prune(slotID)
		if err != nil {
			return err
		}
		total += n
	}
	s.printf("pruned %d save points\n", total)
	return nil
}

func (s *shell) remove(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "remove SLOT"); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return s.rt.Component.DeleteSlot(id)
}

func (s *shell) backup(context.Context, []string) error {
	info, err := s.rt.Component.Backup()
	if err != nil {
		return err
	}
	s.printf("created %s\n", info.Name)
	return nil
}

func (s *shell) backups(context.Context, []string) error {
	infos, err := s.rt.Component.ListBackups()
	if err != nil {
		return err
	}
	return s.rt.Render(backupRows(infos))
}

func (s *shell) restore(_ context.Context, args []string) error {
	if err := needArgs(args, 1, "restore NAME"); err != nil {
		return err
	}
	pre, err := s.rt.Component.Restore(args[0])
	if pre != nil {
		s.printf("previous state saved as %s\n", pre.Name)
	}
	if err != nil {
		return err
	}
	s.printf("restored %s, %d slots\n", args[0], s.rt.Component.Count())
	return nil
}
