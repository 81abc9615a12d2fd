//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/playback"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// Available indicates whether this build produces sound.
const Available = true

const outputRate = beep.SampleRate(44100)

// Speaker plays sources through the system audio device.
type Speaker struct {
	mu     sync.Mutex
	fetch  fetcher
	logger *log.Logger

	initialized bool
	ticket      playback.Ticket
	events      playback.Events
	cancel      context.CancelFunc
	src         *source
	ctrl        *beep.Ctrl
	gain        *effects.Volume
	active      bool
	volume      float64
}

// NewPlayer returns the speaker-backed player.
func NewPlayer(client *http.Client, logger *log.Logger) playback.Media {
	return &Speaker{fetch: newFetcher(client), logger: logger, volume: 1}
}

func (p *Speaker) Load(t playback.Ticket, src string, events playback.Events) {
	p.mu.Lock()
	p.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	p.ticket, p.events, p.cancel = t, events, cancel
	p.mu.Unlock()

	go func() {
		decoded, err := p.fetch.load(ctx, src)

		p.mu.Lock()
		if p.ticket != t {
			p.mu.Unlock()
			if decoded != nil {
				decoded.streamer.Close()
			}
			return
		}
		if err == nil {
			p.src = decoded
		}
		p.mu.Unlock()

		if err != nil {
			p.logger.Warn("failed to load source", "src", src, "error", err)
			events.MediaFailed(t, err)
			return
		}
		events.MediaReady(t)
	}()
}

// initSpeakerLocked initializes the output device on first use.
func (p *Speaker) initSpeakerLocked() error {
	if p.initialized {
		return nil
	}
	if err := speaker.Init(outputRate, outputRate.N(time.Second/10)); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *Speaker) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == nil {
		return errNotLoaded
	}
	if err := p.initSpeakerLocked(); err != nil {
		return err
	}

	if p.active {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	resampled := beep.Resample(4, p.src.format.SampleRate, outputRate, p.src.streamer)
	p.gain = &effects.Volume{Streamer: resampled, Base: 2}
	applyGain(p.gain, p.volume)
	p.ctrl = &beep.Ctrl{Streamer: p.gain}
	p.active = true

	t := p.ticket
	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go p.finished(t)
	})))
	return nil
}

func (p *Speaker) finished(t playback.Ticket) {
	p.mu.Lock()
	if p.ticket != t || !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	events := p.events
	p.mu.Unlock()

	events.MediaEnded(t)
}

func (p *Speaker) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil && p.active {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (p *Speaker) Seek(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == nil {
		return
	}

	n := p.src.format.SampleRate.N(d)
	n = min(max(n, 0), max(p.src.streamer.Len()-1, 0))

	p.lockSpeaker()
	defer p.unlockSpeaker()
	if err := p.src.streamer.Seek(n); err != nil {
		p.logger.Warn("seek failed", "position", d, "error", err)
	}
}

func (p *Speaker) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = level
	if p.gain != nil {
		speaker.Lock()
		applyGain(p.gain, level)
		speaker.Unlock()
	}
}

func (p *Speaker) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == nil {
		return 0
	}

	p.lockSpeaker()
	pos := p.src.streamer.Position()
	p.unlockSpeaker()

	return p.src.format.SampleRate.D(pos)
}

func (p *Speaker) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.src == nil {
		return 0
	}
	return p.src.duration()
}

// Close stops playback and releases the current source.
func (p *Speaker) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.ticket = playback.Ticket{}
	return nil
}

// stopLocked stops playback (must be called with lock held).
func (p *Speaker) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.initialized {
		speaker.Clear()
	}
	if p.src != nil {
		p.src.streamer.Close()
		p.src = nil
	}
	p.ctrl, p.gain, p.active = nil, nil, false
}

// The speaker lock is only needed once the device exists.
func (p *Speaker) lockSpeaker() {
	if p.initialized {
		speaker.Lock()
	}
}

func (p *Speaker) unlockSpeaker() {
	if p.initialized {
		speaker.Unlock()
	}
}

// applyGain maps a linear level in [0, 1] onto beep's logarithmic volume.
func applyGain(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(min(level, 1))
}
