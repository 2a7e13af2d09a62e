package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/core/service"
	"github.com/yndnr/savekeep-go/internal/storage/payload"
	"github.com/yndnr/savekeep-go/internal/storage/slot"
)

// valueRow is the table view of one payload entry.
type valueRow struct {
	Key   string `json:"key" yaml:"key" table:"KEY"`
	Kind  string `json:"kind" yaml:"kind" table:"KIND"`
	Value any    `json:"value" yaml:"value" table:"VALUE"`
}

func valueRows(store *payload.Store, keys []string) ([]valueRow, error) {
	rows := make([]valueRow, 0, len(keys))
	for _, key := range keys {
		v, err := store.Get(key)
		if err != nil {
			return nil, err
		}
		rows = append(rows, valueRow{Key: key, Kind: v.Kind().String(), Value: v.Any()})
	}
	return rows, nil
}

func blobRows(store *payload.Store) []valueRow {
	keys := store.BlobKeys()
	rows := make([]valueRow, 0, len(keys))
	for _, key := range keys {
		p, _ := store.Blob(key)
		rows = append(rows, valueRow{Key: key, Kind: "blob", Value: fmt.Sprintf("%d bytes", len(p))})
	}
	return rows
}

// openSavePoint activates slotID at serialID. A zero serialID selects the
// newest save point. Unlike UseSave, an unknown slot is an error.
func openSavePoint(comp *service.Component, slotID, serialID int32) (*payload.Store, error) {
	infos, err := comp.Infos(slotID)
	if err != nil {
		return nil, err
	}
	if serialID == 0 {
		if len(infos) == 0 {
			return nil, domain.ErrSavePointNotFound.WithDetailsf("slot %d has no save points", slotID)
		}
		serialID = infos[0].SerialID
	}
	return comp.UseSave(slotID, serialID)
}

// NewGameCommand starts a game in a fresh slot and writes its first save
// point.
func NewGameCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Start a new game in a fresh slot and save it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Slot display name"},
			&cli.StringFlag{Name: "player", Usage: "Player name"},
			&cli.IntFlag{Name: "level", Usage: "Player level"},
			&cli.StringFlag{Name: "scene", Usage: "Scene name"},
		},
		Action: func(c *cli.Context) error {
			level, err := int32Flag(c, "level")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			if _, err := rt.Component.UseGameSave(nil); err != nil {
				return err
			}
			err = rt.Component.WithSlot(0, func(g *slot.Group) error {
				if name := c.String("name"); name != "" {
					g.SetName(name)
				}
				g.SetState(c.String("player"), level, c.String("scene"))
				return nil
			})
			if err != nil {
				return err
			}
			info, err := rt.Component.SaveInfo()
			if err != nil {
				return err
			}
			return rt.Render([]pointRow{newPointRow(info)})
		},
	}
}

// SetCommand writes one payload value and saves a new save point.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Set a payload value and write a new save point",
		Flags: []cli.Flag{
			slotFlag(true),
			serialFlag(),
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Payload key", Required: true},
			&cli.StringFlag{Name: "value", Usage: "Value text", Required: true},
			&cli.StringFlag{Name: "kind", Usage: "Value kind: int, float, string, bool, time, strings, bytes", Value: "string"},
		},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			serialID, err := int32Flag(c, "serial")
			if err != nil {
				return err
			}
			kind, err := payload.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}
			value, err := payload.ParseValue(kind, c.String("value"))
			if err != nil {
				return err
			}

			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			store, err := openSavePoint(rt.Component, slotID, serialID)
			if err != nil {
				return err
			}
			if err := store.Set(c.String("key"), value); err != nil {
				return err
			}
			info, err := rt.Component.SaveInfo()
			if err != nil {
				return err
			}
			return rt.Render([]pointRow{newPointRow(info)})
		},
	}
}

// GetCommand prints payload values of a save point.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "Show payload values of a save point",
		Flags: []cli.Flag{
			slotFlag(true),
			serialFlag(),
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Payload key (default: all)"},
			&cli.BoolFlag{Name: "blobs", Usage: "Include blob entries"},
		},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			serialID, err := int32Flag(c, "serial")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			store, err := openSavePoint(rt.Component, slotID, serialID)
			if err != nil {
				return err
			}

			keys := store.Keys()
			if key := c.String("key"); key != "" {
				keys = []string{key}
			}
			rows, err := valueRows(store, keys)
			if err != nil {
				return err
			}
			if c.Bool("blobs") {
				rows = append(rows, blobRows(store)...)
			}
			return rt.Render(rows)
		},
	}
}

// RemoveCommand deletes a slot from disk.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:    "remove",
		Aliases: []string{"rm"},
		Usage:   "Delete a slot and all of its save points",
		Flags:   []cli.Flag{slotFlag(true)},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			if err := rt.Component.DeleteSlot(slotID); err != nil {
				return err
			}
			fmt.Fprintf(rt.Stdout, "slot %d removed\n", slotID)
			return nil
		},
	}
}
