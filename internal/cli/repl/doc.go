// Package repl provides the interactive loop behind "savekeep shell".
//
//   - repl.go: read-eval-print loop and command dispatch
//   - completer.go: prefix completion over registered commands
//   - history.go: bounded command history persisted to a file
//
// Commands are registered by the caller, so the loop itself knows
// nothing about save slots.
package repl
