package playback

import (
	"fmt"
	"slices"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// Queue is an ordered list of songs with a cursor. Next and Previous wrap around.
//
// Queue is not safe for concurrent use.
type Queue struct {
	songs []models.Song
	index int
}

// NewQueue creates a queue positioned on the first song.
func NewQueue(songs []*models.Song) *Queue {
	q := &Queue{index: -1}
	q.Replace(songs)
	return q
}

// Replace swaps the queue contents and moves the cursor to the first song.
func (q *Queue) Replace(songs []*models.Song) {
	q.songs = make([]models.Song, 0, len(songs))
	for _, s := range songs {
		q.songs = append(q.songs, *s)
	}
	q.index = -1
	if len(q.songs) > 0 {
		q.index = 0
	}
}

func (q *Queue) Len() int { return len(q.songs) }

// Index returns the cursor position, -1 when empty.
func (q *Queue) Index() int { return q.index }

// Songs returns a copy of the queued songs.
func (q *Queue) Songs() []models.Song { return slices.Clone(q.songs) }

// Current returns the song under the cursor.
func (q *Queue) Current() (models.Song, bool) {
	if q.index < 0 {
		return models.Song{}, false
	}
	return q.songs[q.index], true
}

// Next advances the cursor, wrapping to the first song.
func (q *Queue) Next() (models.Song, bool) {
	if len(q.songs) == 0 {
		return models.Song{}, false
	}
	q.index = (q.index + 1) % len(q.songs)
	return q.songs[q.index], true
}

// Previous moves the cursor back, wrapping to the last song.
func (q *Queue) Previous() (models.Song, bool) {
	if len(q.songs) == 0 {
		return models.Song{}, false
	}
	q.index = (q.index - 1 + len(q.songs)) % len(q.songs)
	return q.songs[q.index], true
}

// Jump moves the cursor to position i.
func (q *Queue) Jump(i int) (models.Song, error) {
	if i < 0 || i >= len(q.songs) {
		return models.Song{}, fmt.Errorf("%w: queue position %d out of range [0, %d)", shared.ErrInvalidArgument, i, len(q.songs))
	}
	q.index = i
	return q.songs[i], nil
}

// Remove drops the song from the queue. The cursor stays on the same song when it
// survives, or moves to the song that followed the removed one.
func (q *Queue) Remove(songID int64) bool {
	i := slices.IndexFunc(q.songs, func(s models.Song) bool { return s.ID == songID })
	if i < 0 {
		return false
	}

	q.songs = slices.Delete(q.songs, i, i+1)
	switch {
	case len(q.songs) == 0:
		q.index = -1
	case i < q.index:
		q.index--
	case q.index >= len(q.songs):
		q.index = 0
	}
	return true
}
