// Package domain defines the core domain models for SaveKeep.
//
// Domain models are pure value objects without filesystem or framework
// coupling. This package contains:
//
//   - SaveInfo: metadata record of one save point, with its binary codec
//   - ID generation: slot and serial ids from a clock plus random jitter
//   - Errors: the coded error taxonomy shared by every layer
package domain
