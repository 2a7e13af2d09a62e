// Package output renders command results for the savekeep CLI.
//
//   - formatter.go: Formatter interface, format parsing
//   - table.go: aligned tables built from structs, maps and slices
//   - json.go, yaml.go: machine-readable output
//   - spinner.go: activity indicator for backup and restore
//   - progress.go: frame progress for play
package output
