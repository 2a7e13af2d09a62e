// Package buildinfo exposes the build version of savekeep.
//
// Values are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/savekeep-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When not injected, Get falls back to the module and VCS data recorded
// by the Go toolchain. Version is stamped into every save point unless
// game.version is configured.
package buildinfo
