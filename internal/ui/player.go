package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/playback"
	"github.com/desertthunder/tunebox/internal/services"
	"github.com/desertthunder/tunebox/internal/shared"
)

const (
	tickInterval = 250 * time.Millisecond
	seekStep     = 5 * time.Second
	volumeStep   = 10
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	SongListView
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	library    services.Library
	controller *playback.Controller
	queue      *playback.Queue
	logger     *log.Logger
	events     chan Msg
	start      int64

	width        int
	height       int
	playlistList list.Model
	songList     list.Model
	bar          progress.Model
	snapshot     playback.Snapshot
	notice       string
	noticeErr    bool
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates the player over library, playing through media.
//
// opts configure the underlying [playback.Controller]; the model installs its own notifier.
func NewModel(ctx context.Context, library services.Library, media playback.Media, logger *log.Logger, opts ...playback.Option) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	m := &Model{
		ctx:     ctx,
		view:    PlaylistListView,
		library: library,
		queue:   playback.NewQueue(nil),
		logger:  logger,
		events:  make(chan Msg, 16),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	m.playlistList = newList("Playlists • " + library.Name())
	m.songList = newList("Songs")
	m.controller = playback.NewController(media, append(opts, playback.WithNotifier(m.notify))...)
	m.controller.OnEnded(m.ended)
	return m
}

// StartWith opens the playlist with the given id instead of the playlist browser.
func (m *Model) StartWith(playlistID int64) *Model {
	m.start = playlistID
	return m
}

// Controller returns the playback controller driven by the model.
func (m *Model) Controller() *playback.Controller { return m.controller }

// Err returns the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

// notify forwards controller notices into the update loop. Notices are dropped when the loop is saturated.
func (m *Model) notify(n playback.Notice) {
	m.logger.Warn("playback notice", "notice", n.String())
	select {
	case m.events <- noticeMsg(n):
	default:
	}
}

// ended forwards end-of-song events into the update loop.
func (m *Model) ended(song models.Song) {
	select {
	case m.events <- songEndedMsg(song):
	case <-m.ctx.Done():
	}
}

// Init initializes the TUI by fetching playlists, or the starting playlist's songs.
func (m *Model) Init() tea.Cmd {
	first := m.fetchPlaylists()
	if m.start != 0 {
		first = tea.Batch(first, m.fetchSongs(m.start, fmt.Sprintf("Playlist %d", m.start)))
	}
	return tea.Batch(first, m.waitForEvent(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.filtering() {
			return m.updateLists(msg)
		}
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, 0, len(data.playlists)+1)
		items = append(items, playlistItem{})
		for _, pl := range data.playlists {
			items = append(items, playlistItem{playlist: pl})
		}
		return m, m.playlistList.SetItems(items)

	case MsgSongsFetched:
		data := msg.data.(songsFetched)
		if data.err != nil {
			m.setNotice(data.err.Error(), true)
			return m, nil
		}
		m.queue.Replace(data.songs)
		items := make([]list.Item, len(data.songs))
		for i, song := range data.songs {
			items[i] = songItem{song: song, index: i}
		}
		m.songList.ResetFilter()
		m.songList.ResetSelected()
		m.songList.Title = data.title
		m.view = SongListView
		if len(data.songs) == 0 {
			m.setNotice("This playlist is empty", false)
		}
		return m, m.songList.SetItems(items)

	case MsgNotice:
		m.setNotice(msg.data.(playback.Notice).String(), true)
		return m, m.waitForEvent()

	case MsgSongEnded:
		if song, ok := m.queue.Next(); ok {
			m.play(song)
		} else {
			m.setNotice("End of queue", false)
		}
		m.snapshot = m.controller.Snapshot()
		return m, m.waitForEvent()

	case MsgTick:
		m.snapshot = m.controller.Snapshot()
		return m, tick()
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.enter) {
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			if pl.playlist == nil {
				return m, m.fetchLibrary()
			}
			return m, m.fetchSongs(pl.playlist.ID, pl.playlist.Name)
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.songList.SelectedItem().(songItem); ok {
			if song, err := m.queue.Jump(item.index); err == nil {
				m.play(song)
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		m.check(m.controller.TogglePlay())
		return m, nil
	case key.Matches(msg, m.keys.next):
		if song, ok := m.queue.Next(); ok {
			m.play(song)
		}
		return m, nil
	case key.Matches(msg, m.keys.prev):
		if song, ok := m.queue.Previous(); ok {
			m.play(song)
		}
		return m, nil
	case key.Matches(msg, m.keys.forward):
		m.check(m.controller.SeekBy(seekStep))
		return m, nil
	case key.Matches(msg, m.keys.rewind):
		m.check(m.controller.SeekBy(-seekStep))
		return m, nil
	case key.Matches(msg, m.keys.louder):
		m.check(m.controller.SetVolume(m.controller.Volume() + volumeStep))
		return m, nil
	case key.Matches(msg, m.keys.quieter):
		m.check(m.controller.SetVolume(m.controller.Volume() - volumeStep))
		return m, nil
	case key.Matches(msg, m.keys.mute):
		m.check(m.controller.ToggleMute())
		return m, nil
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

// play loads song and asks the controller to start it once ready.
func (m *Model) play(song models.Song) {
	m.notice = ""
	m.controller.LoadSong(song)
	m.check(m.controller.Play())
	if m.view == SongListView {
		m.songList.Select(m.queue.Index())
	}
	m.snapshot = m.controller.Snapshot()
}

// check surfaces rejected controls. Media failures already arrive as notices.
func (m *Model) check(err error) {
	switch {
	case err == nil:
	case errors.Is(err, playback.ErrInvalidTransition):
		m.setNotice("Select a song to start playback", false)
	case errors.Is(err, playback.ErrMediaPlayback):
	default:
		m.setNotice(err.Error(), true)
	}
	m.snapshot = m.controller.Snapshot()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) filtering() bool {
	switch m.view {
	case PlaylistListView:
		return m.playlistList.FilterState() == list.Filtering
	case SongListView:
		return m.songList.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	listHeight := max(m.height-10, 5)
	m.playlistList.SetSize(m.width-4, listHeight)
	m.songList.SetSize(m.width-4, listHeight)
	m.bar.Width = max(m.width-24, 10)
	m.help.Width = m.width
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.ListPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchSongs(playlistID int64, title string) tea.Cmd {
	return func() tea.Msg {
		songs, err := m.library.PlaylistSongs(m.ctx, playlistID)
		return songsFetchedMsg(title, songs, err)
	}
}

func (m *Model) fetchLibrary() tea.Cmd {
	return func() tea.Msg {
		songs, err := m.library.ListSongs(m.ctx)
		return songsFetchedMsg("All songs", songs, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Styles.Title = styles.title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case PlaylistListView:
		body = m.playlistList.View()
	case SongListView:
		body = m.songList.View()
	}

	return fmt.Sprintf("%s\n%s\n%s", body, m.renderNowPlaying(), m.help.View(m.keys))
}

func (m *Model) renderNowPlaying() string {
	s := m.snapshot
	var b strings.Builder

	if s.Song == nil {
		b.WriteString(styles.help.Render("Nothing playing"))
	} else {
		fmt.Fprintf(&b, "%s %s • %s", stateIcon(s.State), styles.playing.Render(s.Song.Title), s.Song.Artist)
		if s.State == playback.Loading {
			b.WriteString(styles.help.Render("  loading..."))
		}
	}

	fmt.Fprintf(&b, "\n%s %s / %s", m.bar.ViewAs(s.Progress()), clock(s.Position), clock(s.Duration))

	volume := fmt.Sprintf("Volume %d%%", s.Volume)
	if s.Muted {
		volume = styles.warn.Render("Muted")
	}
	b.WriteString("\n" + volume)

	if m.notice != "" {
		style := styles.warn
		if m.noticeErr {
			style = styles.err
		}
		b.WriteString("\n" + style.Render(m.notice))
	}

	return styles.panel.Render(b.String())
}

func stateIcon(s playback.State) string {
	switch s {
	case playback.Playing:
		return styles.playing.Render("▶")
	case playback.Loading:
		return "…"
	case playback.Errored:
		return styles.err.Render("✗")
	default:
		return "⏸"
	}
}

func clock(d time.Duration) string {
	return shared.FormatDuration(int(d / time.Second))
}
