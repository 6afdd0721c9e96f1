package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/Fraol-12/encore/internal/services"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [services.YouTubePlaylist] to implement [list.Item].
type playlistItem struct {
	playlist services.YouTubePlaylist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}
