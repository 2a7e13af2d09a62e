package command

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/savekeep-go/internal/infra/buildinfo"
)

// App creates the CLI application on the process streams.
func App() *cli.App {
	return NewApp(os.Stdin, os.Stdout, os.Stderr)
}

// NewApp creates the CLI application on the given streams.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                 "savekeep",
		Usage:                "Inspect and manage encrypted game save slots",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		Reader:               stdin,
		Writer:               stdout,
		ErrWriter:            stderr,
		EnableBashCompletion: true,
		Metadata:             map[string]any{},
		Commands: []*cli.Command{
			SlotsCommand(),
			PointsCommand(),
			NewGameCommand(),
			SetCommand(),
			GetCommand(),
			RemoveCommand(),
			VerifyCommand(),
			PruneCommand(),
			BackupCommand(),
			ConfigCommand(),
			PlayCommand(),
			ShellCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"SAVEKEEP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Save root directory (overrides storage.root_dir)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log at debug level",
		},
	}
}

// GlobalFlags holds the flags shared by every command.
type GlobalFlags struct {
	Config  string
	Root    string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Root:    c.String("root"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// slotFlag is the --slot flag shared by slot commands.
func slotFlag(required bool) *cli.IntFlag {
	return &cli.IntFlag{
		Name:     "slot",
		Aliases:  []string{"s"},
		Usage:    "Slot id",
		Required: required,
	}
}

func serialFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "serial",
		Usage: "Save point serial id (default: newest)",
	}
}

// int32Flag reads an int flag that must fit a slot or serial id.
func int32Flag(c *cli.Context, name string) (int32, error) {
	v := c.Int(name)
	if v < 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("--%s %d out of range", name, v)
	}
	return int32(v), nil
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
