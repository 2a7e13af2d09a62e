// Package binio provides the primitive binary encoding shared by every
// SaveKeep file format.
//
// Layout rules:
//
//   - integers and floats are little-endian, fixed width
//   - strings are a uvarint byte length followed by UTF-8 bytes
//   - byte blobs are an int32 length followed by raw bytes
//   - booleans are a single byte (0 or 1)
//
// Both Writer and Reader keep the first error they hit and turn every
// later call into a no-op, so a codec can issue a run of reads and check
// Err once at the end.
package binio
