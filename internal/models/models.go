package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by [HashPassword].
const MinPasswordLength = 6

// PasswordCost is the bcrypt cost used by [HashPassword].
var PasswordCost = bcrypt.DefaultCost

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Model is implemented by every persistent entity.
type Model interface {
	Validate() error
}

// User is an account that owns songs and playlists.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username" validate:"required,min=3,max=50"`
	PasswordHash string    `json:"-" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Song is an uploaded track. Duration is in seconds; zero means unknown.
type Song struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title" validate:"required,max=200"`
	Artist    string    `json:"artist" validate:"required,max=200"`
	UserID    int64     `json:"userId" validate:"required,gt=0"`
	AudioURL  string    `json:"audioUrl" validate:"required"`
	CoverURL  string    `json:"coverUrl"`
	Duration  int       `json:"duration" validate:"gte=0"`
	CreatedAt time.Time `json:"createdAt"`
}

// Playlist is a named collection of songs owned by a user.
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	UserID    int64     `json:"userId" validate:"required,gt=0"`
	CoverURL  string    `json:"coverUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaylistSong places a song in a playlist. AddedAt orders the playlist.
type PlaylistSong struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlistId" validate:"required,gt=0"`
	SongID     int64     `json:"songId" validate:"required,gt=0"`
	AddedAt    time.Time `json:"addedAt"`
}

// PlaylistExport is a playlist together with its ordered songs.
type PlaylistExport struct {
	Playlist   Playlist  `json:"playlist"`
	Songs      []Song    `json:"songs"`
	ExportedAt time.Time `json:"exportedAt"`
}

// TotalDuration sums the known song durations in seconds.
func (e *PlaylistExport) TotalDuration() int {
	total := 0
	for _, s := range e.Songs {
		total += s.Duration
	}
	return total
}

// NewUser creates a user with a bcrypt hash of password.
func NewUser(username, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{Username: strings.TrimSpace(username), PasswordHash: hash}, nil
}

// NewSong creates a song with trimmed metadata.
func NewSong(title, artist string, userID int64, audioURL, coverURL string, duration int) *Song {
	return &Song{
		Title:    strings.TrimSpace(title),
		Artist:   strings.TrimSpace(artist),
		UserID:   userID,
		AudioURL: audioURL,
		CoverURL: coverURL,
		Duration: duration,
	}
}

// NewPlaylist creates a playlist with a trimmed name.
func NewPlaylist(name string, userID int64, coverURL string) *Playlist {
	return &Playlist{Name: strings.TrimSpace(name), UserID: userID, CoverURL: strings.TrimSpace(coverURL)}
}

// Validate checks the user's fields.
func (u *User) Validate() error { return check(u) }

// Validate checks the song's fields. Owner existence is checked by the [Store].
func (s *Song) Validate() error { return check(s) }

func (p *Playlist) Validate() error { return check(p) }

func (ps *PlaylistSong) Validate() error { return check(ps) }

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", shared.ErrValidation, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether the song's title or artist contains the normalized query.
//
// An empty query matches every song.
func (s *Song) Matches(query string) bool {
	q := shared.NormalizeQuery(query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.Artist), q)
}

// check runs struct validation and converts failures into a single [shared.ErrValidation].
func check(m any) error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be positive"
	case "gte":
		return fe.Field() + " must not be negative"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
