// Package service orchestrates save slots for a host application.
//
// This package contains:
//
//   - Registry: slot id to slot group map, the active slot, fan-out
//     save and load, and play time ticks
//   - Component: the host facade over a save root, adding locking,
//     auto-save, backup and restore
//   - AutoSaver: an interval timer driven by unscaled frame time
//
// Registry and slot groups are single-threaded. Component serializes
// every call with a mutex so a ticker, a signal handler, and interactive
// commands can share it.
package service
