package tasks

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/media"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// LibraryEngine runs bulk operations against a store and its upload directory.
type LibraryEngine struct {
	store   models.Store
	uploads *media.Uploads
	logger  *log.Logger
}

// NewLibraryEngine creates a new [LibraryEngine]. uploads may be nil when only exporting.
func NewLibraryEngine(store models.Store, uploads *media.Uploads, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{store: store, uploads: uploads, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func workers(n int) int {
	if n <= 0 {
		return defaultWorkers
	}
	return min(n, maxWorkers)
}
