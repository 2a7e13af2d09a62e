package command

import (
	"fmt"
	"sort"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/savekeep-go/internal/cli/output"
	"github.com/yndnr/savekeep-go/internal/config"
	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/core/service"
)

type verifyRow struct {
	SlotID   int32  `json:"slot_id" yaml:"slot_id" table:"SLOT"`
	SerialID int32  `json:"serial_id" yaml:"serial_id" table:"SERIAL"`
	Status   string `json:"status" yaml:"status" table:"STATUS"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty" table:"CODE"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty" table:"ERROR,wide"`
	Path     string `json:"path" yaml:"path" table:"PATH,wide"`
}

// slotIDs returns slotID alone, or every known slot when it is zero.
func slotIDs(comp *service.Component, slotID int32) []int32 {
	if slotID != 0 {
		return []int32{slotID}
	}
	heads := comp.HeadInfos()
	ids := make([]int32, 0, len(heads))
	for _, h := range heads {
		ids = append(ids, h.SlotID)
	}
	return ids
}

// VerifyCommand checks the integrity of save points.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check hashes and MACs of every save point",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "slot", Aliases: []string{"s"}, Usage: "Slot id (default: all slots)"},
		},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}

			var rows []verifyRow
			failed := 0
			for _, id := range slotIDs(rt.Component, slotID) {
				results, err := rt.Component.Verify(id)
				if err != nil {
					return err
				}
				for _, r := range results {
					row := verifyRow{
						SlotID:   r.Info.SlotID,
						SerialID: r.Info.SerialID,
						Status:   "ok",
						Path:     r.Info.DataPath(),
					}
					if r.Err != nil {
						failed++
						row.Status = "failed"
						row.Code = domain.GetErrorCode(r.Err)
						row.Error = r.Err.Error()
					}
					rows = append(rows, row)
				}
			}
			if err := rt.Render(rows); err != nil {
				return err
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d save points failed verification", failed, len(rows)), 1)
			}
			return nil
		},
	}
}

// PruneCommand applies retention to slots on disk.
func PruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete save points beyond storage.max_save_points and orphaned data files",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "slot", Aliases: []string{"s"}, Usage: "Slot id (default: all slots)"},
		},
		Action: func(c *cli.Context) error {
			slotID, err := int32Flag(c, "slot")
			if err != nil {
				return err
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			total := 0
			for _, id := range slotIDs(rt.Component, slotID) {
				n, err := rt.Component.Prune(id)
				if err != nil {
					return err
				}
				total += n
				if n > 0 {
					fmt.Fprintf(rt.Stdout, "slot %d: removed %d save points\n", id, n)
				}
			}
			fmt.Fprintf(rt.Stdout, "pruned %d save points\n", total)
			return nil
		},
	}
}

type settingRow struct {
	Key   string `json:"key" yaml:"key" table:"KEY"`
	Value string `json:"value" yaml:"value" table:"VALUE"`
}

// ConfigCommand inspects the effective configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets masked",
				Action: func(c *cli.Context) error {
					rt, err := runtimeFor(c)
					if err != nil {
						return err
					}
					sanitized := config.Sanitize(rt.Config)
					if rt.Format != output.FormatTable {
						return rt.Render(sanitized)
					}
					rows, err := settingRows(sanitized)
					if err != nil {
						return err
					}
					return rt.Render(rows)
				},
			},
		},
	}
}

// settingRows flattens cfg into dotted keys.
func settingRows(cfg *config.Config) ([]settingRow, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	flat, _ := maps.Flatten(tree, nil, ".")
	rows := make([]settingRow, 0, len(flat))
	for k, v := range flat {
		rows = append(rows, settingRow{Key: k, Value: fmt.Sprint(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}
