// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for catalog sync:
//  1. [PlaylistListView] : Browse and select a YouTube Music source playlist
//  2. [ConfirmView] : Confirm the sync operation
//  3. [SyncView] : Monitor real-time progress updates from the engine
//  4. [ResultView] : Display per-outcome counts and entries needing attention
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the SyncEngine, providing
// non-blocking status reporting while items are processed.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
