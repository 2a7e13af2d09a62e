package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/cli/output"
	"github.com/yndnr/savekeep-go/internal/storage/backup"
)

type backupRow struct {
	Name      string    `json:"name" yaml:"name" table:"NAME"`
	Kind      string    `json:"kind" yaml:"kind" table:"KIND"`
	Size      string    `json:"size" yaml:"size" table:"SIZE"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" table:"CREATED"`
}

func backupRows(infos []*backup.Info) []backupRow {
	rows := make([]backupRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, backupRow{
			Name:      info.Name,
			Kind:      string(info.Kind),
			Size:      output.FormatBytes(info.Size),
			CreatedAt: info.CreatedAt,
		})
	}
	return rows
}

// BackupCommand manages archives of the save root.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Create, list, verify and restore save root archives",
		Subcommands: []*cli.Command{
			backupCreateCommand(),
			backupListCommand(),
			backupVerifyCommand(),
			backupRestoreCommand(),
		},
	}
}

func backupCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Archive the save root",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			spin := output.NewSpinner(rt.Stderr, "creating backup")
			spin.Start()
			info, err := rt.Component.Backup()
			if err != nil {
				spin.Fail(err.Error())
				return err
			}
			spin.Success(fmt.Sprintf("%s (%d files)", info.Name, info.Files))
			return rt.Render(backupRows([]*backup.Info{info}))
		},
	}
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List archives, newest first",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			infos, err := rt.Component.ListBackups()
			if err != nil {
				return err
			}
			return rt.Render(backupRows(infos))
		},
	}
}

func backupVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check an archive's MAC and contents",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return cli.Exit("backup name is required", 2)
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			if err := rt.Component.VerifyBackup(name); err != nil {
				return err
			}
			fmt.Fprintf(rt.Stdout, "%s: ok\n", name)
			return nil
		},
	}
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the save root with an archive",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return cli.Exit("backup name is required", 2)
			}
			rt, err := runtimeFor(c)
			if err != nil {
				return err
			}
			pre, err := rt.Component.Restore(name)
			if pre != nil {
				fmt.Fprintf(rt.Stderr, "previous state saved as %s\n", pre.Name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.Stdout, "restored %s: %d slots\n", name, rt.Component.Count())
			return nil
		},
	}
}
