package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
)

var (
	// ErrMediaPlayback wraps failures reported by the media backend (unsupported codec, network).
	ErrMediaPlayback = errors.New("media playback failed")
	// ErrInvalidTransition is returned for controls that do not apply in the current state.
	ErrInvalidTransition = errors.New("invalid playback transition")
)

// State is the controller state.
type State int

const (
	Idle State = iota
	Loading
	ReadyPaused
	Playing
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case ReadyPaused:
		return "paused"
	case Playing:
		return "playing"
	case Errored:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loaded reports whether a source is ready in this state.
func (s State) Loaded() bool {
	return s == ReadyPaused || s == Playing
}

// Ticket identifies one load request. Seq increases with every load.
type Ticket struct {
	Seq    uint64
	SongID int64
}

// Events receives media lifecycle notifications for a load.
type Events interface {
	MediaReady(t Ticket)
	MediaEnded(t Ticket)
	MediaFailed(t Ticket, err error)
}

// Media is a single playable source.
//
// Implementations must deliver [Events] from their own goroutines, never from inside a
// Media method call. Volume is a linear gain in [0, 1].
type Media interface {
	Load(t Ticket, src string, events Events)
	Play() error
	Pause()
	Seek(d time.Duration)
	SetVolume(level float64)
	Position() time.Duration
	Duration() time.Duration
}

// Notice is a user-visible playback failure.
type Notice struct {
	Song *models.Song
	Err  error
}

func (n Notice) String() string {
	if n.Song == nil {
		return n.Err.Error()
	}
	return fmt.Sprintf("could not play %q: %v", n.Song.Title, n.Err)
}

// Notifier receives notices. It is called without the controller lock held.
type Notifier func(Notice)

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State    State
	Song     *models.Song
	Position time.Duration
	Duration time.Duration
	Volume   int
	Muted    bool
	Err      error
}

// Progress returns the position as a fraction of the duration, 0 when the duration is unknown.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(1, max(0, float64(s.Position)/float64(s.Duration)))
}
