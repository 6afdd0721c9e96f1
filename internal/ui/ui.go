package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       *services.YouTubeService
	engine       *tasks.SyncEngine
	materializer *tasks.Materializer
	destName     string
	mirror       bool
	width        int
	height       int
	playlistList list.Model
	selected     *services.YouTubePlaylist
	progressChan chan tasks.ProgressUpdate
	doneChan     chan syncOutcome
	progress     tasks.ProgressUpdate
	job          *models.SyncJob
	matResult    *tasks.MaterializeResult
	err          error
	help         help.Model
	keys         keyMap
}

type playlistsFetchedMsg struct {
	playlists []services.YouTubePlaylist
	err       error
}

type progressUpdateMsg tasks.ProgressUpdate

type syncOutcome struct {
	job       *models.SyncJob
	matResult *tasks.MaterializeResult
	err       error
}

type syncCompleteMsg syncOutcome

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, source *services.YouTubeService, engine *tasks.SyncEngine, materializer *tasks.Materializer, destName string, mirror bool) *Model {
	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		source:       source,
		engine:       engine,
		materializer: materializer,
		destName:     destName,
		mirror:       mirror,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching playlists from YouTube Music.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "YouTube Music Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.job = msg.job
		m.matResult = msg.matResult
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	if m.view == PlaylistListView {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				m.selected = &pl.playlist
				m.view = ConfirmView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "esc":
		m.view = PlaylistListView
		m.selected = nil
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.selected = nil
		m.job = nil
		m.matResult = nil
		m.err = nil
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.Playlists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan syncOutcome, 1)

	progressChan := m.progressChan
	doneChan := m.doneChan

	go func() {
		job, err := m.engine.Start(m.ctx, m.selected.ID, m.destName, models.TriggerUser, progressChan)
		var matResult *tasks.MaterializeResult
		if err == nil && job.Status != models.StatusFailed {
			matResult, err = m.materializer.Materialize(m.ctx, job, m.mirror, progressChan)
		}
		doneChan <- syncOutcome{job: job, matResult: matResult, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{job: m.job, matResult: m.matResult, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg(<-m.doneChan)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s' to Spotify?", m.selected.Title))
	info := fmt.Sprintf("\nSource: %s (%d tracks)\nDestination: %s\n", m.selected.Title, m.selected.TrackCount, m.destName)
	if m.mirror {
		info += "Mode: mirror (extra destination tracks are removed)\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.ProcessItems:
		phase = fmt.Sprintf("Matching entries (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Checkpoint:
		phase = fmt.Sprintf("Checkpoint saved (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Materialize:
		phase = "Materializing playlist on Spotify..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to start over, q to quit", m.err))
	}

	if m.job == nil {
		return styles.err.Render("No result available\n\nPress r to start over, q to quit")
	}

	matched, unmatched, failed := m.job.Counts()
	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf(
		"\nJob: %s (%s)\nEntries: %d\nMatched: %d, Unmatched: %d, Failed: %d",
		m.job.JobID, m.job.Status, len(m.job.SourceEntries), matched, unmatched, failed,
	)

	if m.matResult != nil {
		info += fmt.Sprintf(
			"\nPlaylist '%s': %d added, %d removed, %d already present",
			m.matResult.PlaylistName, m.matResult.Added, m.matResult.Removed, m.matResult.AlreadyPresent,
		)
	}

	var attention string
	if seed := m.job.RetrySeed(); len(seed) > 0 {
		attention = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("%d entries need attention:", len(seed))))
		for _, entry := range seed {
			attention += fmt.Sprintf("\n  • %s - %s", entry.ChannelName, entry.Title)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, attention, helpView)
}
