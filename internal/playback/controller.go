package playback

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
)

const (
	MaxVolume     = 100
	DefaultVolume = 100
)

// Controller owns one [Media] and tracks what it is doing.
//
// All methods are safe for concurrent use. Media events may arrive from any goroutine.
type Controller struct {
	mu sync.Mutex

	media   Media
	baseURL *url.URL

	state    State
	song     *models.Song
	pending  Ticket
	seq      uint64
	autoplay bool
	err      error

	volume  int
	restore int

	notify  Notifier
	onEnded func(models.Song)
}

// Option configures a [Controller].
type Option func(*Controller)

// WithBaseURL resolves relative song locators against base.
func WithBaseURL(base string) Option {
	return func(c *Controller) {
		if u, err := url.Parse(strings.TrimSuffix(base, "/") + "/"); err == nil && base != "" {
			c.baseURL = u
		}
	}
}

// WithNotifier sets the function receiving user-visible failures.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithVolume sets the initial volume, clamped to [0, 100].
func WithVolume(level int) Option {
	return func(c *Controller) { c.volume = clampVolume(level) }
}

// NewController creates an idle controller over media.
func NewController(media Media, opts ...Option) *Controller {
	c := &Controller{media: media, volume: DefaultVolume, restore: DefaultVolume}
	for _, opt := range opts {
		opt(c)
	}
	if c.volume > 0 {
		c.restore = c.volume
	}
	media.SetVolume(gain(c.volume))
	return c
}

// OnEnded registers fn to run after a song plays to completion.
func (c *Controller) OnEnded(fn func(models.Song)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = fn
}

// LoadSong makes song the current source and returns the ticket of the load.
//
// Valid from any state. The new load autoplays only if the controller was Playing,
// or was itself loading with the intent to play.
func (c *Controller) LoadSong(song models.Song) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoplay = c.state == Playing || (c.state == Loading && c.autoplay)
	c.seq++
	c.pending = Ticket{Seq: c.seq, SongID: song.ID}
	c.song = &song
	c.state = Loading
	c.err = nil

	c.media.SetVolume(gain(c.volume))
	c.media.Load(c.pending, c.resolve(song.AudioURL), c)
	return c.pending
}

// MediaReady completes the pending load.
func (c *Controller) MediaReady(t Ticket) {
	c.mu.Lock()
	if t != c.pending || c.state != Loading {
		c.mu.Unlock()
		return
	}

	var notice *Notice
	if c.autoplay {
		notice = c.startLocked()
	} else {
		c.state = ReadyPaused
	}
	c.mu.Unlock()

	c.emit(notice)
}

// MediaEnded handles the end of the current source. The position returns to the start.
func (c *Controller) MediaEnded(t Ticket) {
	c.mu.Lock()
	if t != c.pending || c.state != Playing {
		c.mu.Unlock()
		return
	}

	c.media.Pause()
	c.media.Seek(0)
	c.state = ReadyPaused
	song, hook := *c.song, c.onEnded
	c.mu.Unlock()

	if hook != nil {
		hook(song)
	}
}

// MediaFailed moves the controller to Errored for the pending load.
func (c *Controller) MediaFailed(t Ticket, err error) {
	c.mu.Lock()
	if t != c.pending {
		c.mu.Unlock()
		return
	}

	notice := c.failLocked(err)
	c.mu.Unlock()

	c.emit(notice)
}

// Play starts playback of a ready source.
//
// While Loading it records the intent to play once ready. A rejected start moves the
// controller to Errored and is reported both as the returned error and as a notice.
func (c *Controller) Play() error {
	c.mu.Lock()

	var notice *Notice
	switch c.state {
	case ReadyPaused:
		notice = c.startLocked()
	case Loading:
		c.autoplay = true
	case Playing:
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: play while %s", ErrInvalidTransition, state)
	}
	c.mu.Unlock()

	c.emit(notice)
	if notice != nil {
		return notice.Err
	}
	return nil
}

// Pause stops playback, keeping the position. While Loading it cancels a pending autoplay.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		c.media.Pause()
		c.state = ReadyPaused
	case Loading:
		c.autoplay = false
	case ReadyPaused:
	default:
		return fmt.Errorf("%w: pause while %s", ErrInvalidTransition, c.state)
	}
	return nil
}

// TogglePlay pauses when playing (or about to play) and plays otherwise.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	playing := c.state == Playing || (c.state == Loading && c.autoplay)
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Seek moves to d, clamped to [0, duration]. The play/pause state is unchanged.
// While the duration is unknown only the lower bound applies.
func (c *Controller) Seek(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Loaded() {
		return fmt.Errorf("%w: seek while %s", ErrInvalidTransition, c.state)
	}

	d = max(d, 0)
	if total := c.durationLocked(); total > 0 {
		d = min(d, total)
	}
	c.media.Seek(d)
	return nil
}

// SeekFraction moves to fraction f of the duration, with f clamped to [0, 1].
// It does nothing while the duration is unknown.
func (c *Controller) SeekFraction(f float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Loaded() {
		return fmt.Errorf("%w: seek while %s", ErrInvalidTransition, c.state)
	}

	total := c.durationLocked()
	if total <= 0 {
		return nil
	}
	f = min(max(f, 0), 1)
	c.media.Seek(time.Duration(f * float64(total)))
	return nil
}

// SeekBy moves relative to the current position.
func (c *Controller) SeekBy(delta time.Duration) error {
	c.mu.Lock()
	pos := c.positionLocked()
	c.mu.Unlock()

	return c.Seek(pos + delta)
}

// SetVolume sets the volume, clamped to [0, 100]. It persists across loads.
func (c *Controller) SetVolume(level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Errored {
		return fmt.Errorf("%w: volume while %s", ErrInvalidTransition, c.state)
	}

	c.volume = clampVolume(level)
	if c.volume > 0 {
		c.restore = c.volume
	}
	c.media.SetVolume(gain(c.volume))
	return nil
}

// ToggleMute mutes, or restores the last audible volume.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	level := 0
	if c.volume == 0 {
		level = c.restore
	}
	c.mu.Unlock()

	return c.SetVolume(level)
}

// Volume returns the current volume in [0, 100].
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position reads the media clock while a source is loaded, and is 0 otherwise.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Progress returns the position as a fraction of the duration.
func (c *Controller) Progress() float64 {
	return c.Snapshot().Progress()
}

// Snapshot returns the full controller state at one instant.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:    c.state,
		Position: c.positionLocked(),
		Volume:   c.volume,
		Muted:    c.volume == 0,
		Err:      c.err,
	}
	if c.song != nil {
		song := *c.song
		snap.Song = &song
		snap.Duration = c.durationLocked()
	}
	return snap
}

func (c *Controller) startLocked() *Notice {
	if err := c.media.Play(); err != nil {
		return c.failLocked(err)
	}
	c.state = Playing
	return nil
}

func (c *Controller) failLocked(err error) *Notice {
	c.state = Errored
	c.autoplay = false
	c.err = fmt.Errorf("%w: %v", ErrMediaPlayback, err)

	notice := &Notice{Err: c.err}
	if c.song != nil {
		song := *c.song
		notice.Song = &song
	}
	return notice
}

func (c *Controller) emit(n *Notice) {
	if n == nil {
		return
	}

	c.mu.Lock()
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(*n)
	}
}

func (c *Controller) positionLocked() time.Duration {
	if !c.state.Loaded() {
		return 0
	}
	return c.media.Position()
}

// durationLocked prefers the media's duration and falls back to the stored song length.
func (c *Controller) durationLocked() time.Duration {
	if c.state.Loaded() {
		if d := c.media.Duration(); d > 0 {
			return d
		}
	}
	if c.song != nil {
		return time.Duration(c.song.Duration) * time.Second
	}
	return 0
}

func (c *Controller) resolve(src string) string {
	if c.baseURL == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil || ref.IsAbs() {
		return src
	}
	return c.baseURL.ResolveReference(ref).String()
}

func clampVolume(level int) int {
	return min(max(level, 0), MaxVolume)
}

func gain(level int) float64 {
	return float64(level) / MaxVolume
}
