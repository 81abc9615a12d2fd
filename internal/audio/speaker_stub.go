//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/playback"
)

// Available indicates whether this build produces sound. Native output needs cgo on this platform.
const Available = false

// NewPlayer returns a [Silent] player, since this build has no audio output.
func NewPlayer(client *http.Client, logger *log.Logger) playback.Media {
	logger.Warn("audio output unavailable in this build; playing silently")
	return NewSilent(client)
}
