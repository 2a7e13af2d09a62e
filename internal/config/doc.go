// Package config defines the savekeep configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: secret masking for log output
//   - load.go: layered loading through internal/infra/confloader
package config
