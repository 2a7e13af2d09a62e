// Package payload implements the versioned key/value and blob store
// captured by a save point.
//
// Values belong to a closed set of kinds (see Kind). The store encodes to
// a flat little-endian stream:
//
//	int32 version
//	int32 kvCount   { string key, string jsonValue, string typeName }
//	int32 blobCount { string key, int32 len, bytes }
//
// Entries are written in sorted key order so equal stores encode to
// equal bytes.
package payload
