package audio

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/tunebox/internal/playback"
)

var errNotLoaded = errors.New("no source loaded")

// Silent is a [playback.Media] that decodes sources for their length and advances a
// wall clock instead of producing sound.
type Silent struct {
	mu    sync.Mutex
	fetch fetcher
	now   func() time.Time

	ticket  playback.Ticket
	events  playback.Events
	cancel  context.CancelFunc
	loaded  bool
	length  time.Duration
	offset  time.Duration
	started time.Time
	playing bool
	timer   *time.Timer
	gen     uint64
	volume  float64
}

// NewSilent creates a silent player. client may be nil.
func NewSilent(client *http.Client) *Silent {
	return &Silent{fetch: newFetcher(client), now: time.Now, volume: 1}
}

func (s *Silent) Load(t playback.Ticket, src string, events playback.Events) {
	s.mu.Lock()
	s.resetLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.ticket, s.events, s.cancel = t, events, cancel
	s.mu.Unlock()

	go func() {
		decoded, err := s.fetch.load(ctx, src)

		var length time.Duration
		if err == nil {
			length = decoded.duration()
			decoded.streamer.Close()
		}

		s.mu.Lock()
		if s.ticket != t {
			s.mu.Unlock()
			return
		}
		if err == nil {
			s.loaded, s.length = true, length
		}
		s.mu.Unlock()

		if err != nil {
			events.MediaFailed(t, err)
			return
		}
		events.MediaReady(t)
	}()
}

func (s *Silent) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return errNotLoaded
	}
	if !s.playing {
		s.playing = true
		s.started = s.now()
		s.scheduleLocked()
	}
	return nil
}

func (s *Silent) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		s.offset = s.positionLocked()
		s.playing = false
		s.stopTimerLocked()
	}
}

func (s *Silent) Seek(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offset = min(max(d, 0), s.length)
	if s.playing {
		s.started = s.now()
		s.scheduleLocked()
	}
}

func (s *Silent) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = level
}

func (s *Silent) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *Silent) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

// Close stops the clock and abandons any load in flight.
func (s *Silent) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.ticket = playback.Ticket{}
	return nil
}

func (s *Silent) positionLocked() time.Duration {
	if !s.playing {
		return s.offset
	}
	return min(s.offset+s.now().Sub(s.started), s.length)
}

// scheduleLocked arms the end-of-track timer for the remaining time.
func (s *Silent) scheduleLocked() {
	s.stopTimerLocked()
	gen := s.gen
	s.timer = time.AfterFunc(s.length-s.offset, func() { s.finish(gen) })
}

func (s *Silent) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Silent) finish(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = false
	s.offset = s.length
	t, events := s.ticket, s.events
	s.mu.Unlock()

	events.MediaEnded(t)
}

func (s *Silent) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stopTimerLocked()
	s.loaded, s.playing = false, false
	s.length, s.offset = 0, 0
}
