// Package main provides the entry point for savekeep.
//
// savekeep manages the encrypted save slots of a game: listing and editing
// save points, integrity checks, retention, backup and restore, and a
// simulated play loop that exercises auto-save.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/savekeep-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
