// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags), via WithOverrides
//  2. Environment variables, SAVEKEEP_SECTION_KEY
//  3. The YAML configuration file
//  4. Defaults, via WithDefaults
//
// Watcher reports changes to a configuration file with fsnotify so a
// long-running command can call Loader.Reload.
package confloader
