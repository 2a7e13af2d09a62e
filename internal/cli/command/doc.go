// Package command defines the savekeep CLI with urfave/cli/v2.
//
//   - root.go: application, global flags, output helpers
//   - runtime.go: configuration, logger, codec and component wiring
//   - slots.go: slots, points
//   - game.go: new, set, get, remove
//   - maintenance.go: verify, prune, config show
//   - backup.go: backup create, list, verify, restore
//   - play.go: paced host loop with auto-save
//   - shell.go: interactive shell over one component
//
// Every command parses flags, calls service.Component, and renders the
// result with the --output formatter.
package command
