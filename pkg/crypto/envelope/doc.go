// Package envelope implements the SaveKeep payload codec.
//
// Encoding pipeline:
//
//	plaintext
//	  -> gzip (best compression)
//	  -> AES-256-CBC, PKCS#7 padding, random 16-byte IV prepended
//	  -> HMAC-SHA-256 over IV||ciphertext
//	  -> [macLen:int32 LE][mac][IV||ciphertext]
//
// Decoding verifies the HMAC before any byte of the ciphertext is
// decrypted. A single flipped byte anywhere in the frame yields
// ErrIntegrity.
//
// Key material is derived once from an injected SecretProvider
// (PBKDF2-SHA-256 by default, Argon2id optionally) and shared read-only
// by every Codec built on it.
//
// Hash is an independent SHA-256 tag that callers store next to the
// envelope as a second, file-level integrity check.
package envelope
