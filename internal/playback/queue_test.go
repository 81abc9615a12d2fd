package playback

import (
	"errors"
	"testing"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

func testQueue() *Queue {
	return NewQueue([]*models.Song{ptr(song(1, "A")), ptr(song(2, "B")), ptr(song(3, "C"))})
}

func TestQueue(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		q := NewQueue(nil)
		if _, ok := q.Current(); ok {
			t.Error("empty queue should have no current song")
		}
		if _, ok := q.Next(); ok {
			t.Error("empty queue should have no next song")
		}
		if q.Index() != -1 {
			t.Errorf("expected index -1, got %d", q.Index())
		}
	})

	t.Run("Next wraps", func(t *testing.T) {
		q := testQueue()
		var got []int64
		for range 4 {
			s, _ := q.Next()
			got = append(got, s.ID)
		}
		if len(got) != 4 || got[0] != 2 || got[1] != 3 || got[2] != 1 || got[3] != 2 {
			t.Errorf("expected [2 3 1 2], got %v", got)
		}
	})

	t.Run("Previous wraps", func(t *testing.T) {
		q := testQueue()
		s, _ := q.Previous()
		if s.ID != 3 {
			t.Errorf("expected 3, got %d", s.ID)
		}
	})

	t.Run("Jump", func(t *testing.T) {
		q := testQueue()
		s, err := q.Jump(2)
		if err != nil || s.ID != 3 {
			t.Errorf("expected song 3, got %d (%v)", s.ID, err)
		}
		if _, err := q.Jump(3); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		tc := []struct {
			name    string
			cursor  int
			remove  int64
			current int64
		}{
			{name: "before cursor", cursor: 2, remove: 1, current: 3},
			{name: "at cursor", cursor: 1, remove: 2, current: 3},
			{name: "at cursor on last", cursor: 2, remove: 3, current: 1},
			{name: "after cursor", cursor: 0, remove: 3, current: 1},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				q := testQueue()
				q.Jump(tt.cursor)
				if !q.Remove(tt.remove) {
					t.Fatalf("expected song %d to be removed", tt.remove)
				}
				s, ok := q.Current()
				if !ok || s.ID != tt.current {
					t.Errorf("expected current %d, got %d", tt.current, s.ID)
				}
				if q.Len() != 2 {
					t.Errorf("expected 2 songs, got %d", q.Len())
				}
			})
		}

		q := NewQueue([]*models.Song{ptr(song(1, "A"))})
		q.Remove(1)
		if _, ok := q.Current(); ok {
			t.Error("queue should be empty")
		}
		if q.Remove(1) {
			t.Error("removing an absent song should report false")
		}
	})
}
