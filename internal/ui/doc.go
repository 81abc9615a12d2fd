// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// The player has two views:
//  1. [PlaylistListView] : Browse playlists, plus an "All songs" entry for the whole library
//  2. [SongListView] : Browse a playlist's songs and control playback
//
// The (view) [Model] owns a [playback.Controller] and a [playback.Queue]. Selecting a song
// jumps the queue and loads it; when a song ends the queue advances automatically.
// Controller notices and end-of-song events arrive from audio goroutines and are bridged
// into the update loop through a channel, the same way task progress is delivered.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via
// charmbracelet/bubbles/help; "?" expands the full binding list.
package ui
