// Package slot manages one save slot: its payload, its ordered save
// points, and their files on disk.
//
// A slot directory holds pairs of files per save point:
//
//	GameSave{serial}_{yyyyMMdd_HHmmss_fff}.info  SaveInfo record
//	GameSave{serial}_{yyyyMMdd_HHmmss_fff}.dat   string hash, int32 len, encrypted payload
//
// Both files are written to a temporary name, synced, and renamed into
// place. Retention keeps the newest MaxSavePoints pairs.
package slot
