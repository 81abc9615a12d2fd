// Package repositories implements the [models.Store] entity store.
//
// [SQLStore] persists to SQLite. It is composed of one repository per table:
//   - [UserRepository] : accounts with username lookups
//   - [SongRepository] : songs with owner and title/artist search criteria
//   - [PlaylistRepository] : playlists with owner criteria
//   - [PlaylistSongRepository] : playlist membership, ordered by insertion time
//
// Repositories run against either the database or an open transaction. Ids come from
// per-table sequence counters ([NextSequence]) incremented inside the insert transaction,
// so they increase monotonically and are never reused, even after deletes.
// Mutations are serialized by the store and cascades run in the parent's transaction.
//
// [MemoryStore] keeps the same contract in process memory for tests and throwaway servers.
package repositories
