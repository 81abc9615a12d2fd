// Package tasks runs long library operations with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] implements two bulk operations:
//
//  1. [LibraryEngine.Import] : Import a directory of audio files
//     - Scans the directory tree for audio files ([ScanAudio])
//     - Derives title and artist from "Artist - Title" file names ([ParseFilename])
//     - Stores each file (and a matching cover image) through [media.Uploads]
//     - Optionally collects the imported songs into a new playlist, in file order
//
//  2. [LibraryEngine.BulkExport] : Export playlists to files
//     - Resolves each playlist and its ordered songs
//     - Writes them with [formatter.WriteExport]
//     - Writes an export_manifest.json summarising successes and failures
//
// Both operations fan work out to a bounded worker pool paced by a token bucket
// ([rate.Limiter]) and stop early when the context is cancelled.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
