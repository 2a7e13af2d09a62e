// Package backup archives a save root and restores it.
//
// An archive is a gzip-compressed tar of every slot directory followed by
// a 32-byte HMAC-SHA-256 trailer over the compressed bytes:
//
//	Backup/Backup_<ULID>.tar.gz      manual backups, capped at MaxBackups
//	Backup/PreRestore_<ULID>.tar.gz  state captured before each restore
//
// ULIDs sort lexically in creation order, so eviction drops the
// lexically smallest names first.
package backup
