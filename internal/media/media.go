package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// URLPrefix is the path under which stored assets are served.
const URLPrefix = "/uploads/"

// sniffLen is how much of a payload is read to detect its type.
const sniffLen = 3072

func init() {
	for ext, typ := range map[string]string{
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".ogg":  "audio/ogg",
		".m4a":  "audio/mp4",
		".webp": "image/webp",
	} {
		mime.AddExtensionType(ext, typ)
	}
}

// Kind is the role of an uploaded asset.
type Kind int

const (
	Audio Kind = iota
	Image
)

func (k Kind) String() string {
	if k == Image {
		return "image"
	}
	return "audio"
}

// accepts reports whether the detected type is allowed for the kind.
func (k Kind) accepts(m *mimetype.MIME) bool {
	prefix := k.String() + "/"
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), prefix) {
			return true
		}
	}
	return false
}

// Asset describes a stored upload.
type Asset struct {
	Filename    string
	URL         string
	ContentType string
	Size        int64
	// Duration is the probed length of an audio asset, zero when unknown.
	Duration time.Duration
}

// Seconds returns the asset duration rounded to whole seconds.
func (a *Asset) Seconds() int {
	return int(a.Duration.Round(time.Second) / time.Second)
}

// Prober measures the playing time of an audio file.
type Prober func(path string) (time.Duration, error)

// Uploads stores assets in a directory.
type Uploads struct {
	dir    string
	probe  Prober
	logger *log.Logger
}

// NewUploads creates the upload directory if needed. probe may be nil.
func NewUploads(dir string, probe Prober, logger *log.Logger) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Uploads{dir: dir, probe: probe, logger: logger}, nil
}

// Dir returns the upload directory.
func (u *Uploads) Dir() string { return u.dir }

// Save stores r as an asset of the given kind.
//
// Payloads whose sniffed type does not match the kind are rejected with [shared.ErrValidation].
// The stored file name is generated; the extension comes from the detected type.
func (u *Uploads) Save(ctx context.Context, kind Kind, r io.Reader) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s upload: %w", kind, err)
	}
	header = header[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: %s file is empty", shared.ErrValidation, kind)
	}

	detected := mimetype.Detect(header)
	if !kind.accepts(detected) {
		return nil, fmt.Errorf("%w: %s file has unsupported type %s", shared.ErrValidation, kind, detected.String())
	}

	filename := shared.GenerateID() + detected.Extension()
	dest := filepath.Join(u.dir, filename)

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s file: %w", kind, err)
	}

	size, err := io.Copy(f, io.MultiReader(bytes.NewReader(header), r))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	asset := &Asset{
		Filename:    filename,
		URL:         URLPrefix + filename,
		ContentType: detected.String(),
		Size:        size,
	}

	if kind == Audio && u.probe != nil {
		d, err := u.probe(dest)
		if err != nil {
			u.logger.Warn("could not probe duration", "file", filename, "type", asset.ContentType, "error", err)
		} else {
			asset.Duration = d
		}
	}

	u.logger.Debug("stored upload", "kind", kind, "file", filename, "bytes", size)
	return asset, nil
}

// SaveFile stores the file at path as an asset of the given kind.
func (u *Uploads) SaveFile(ctx context.Context, kind Kind, path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return u.Save(ctx, kind, f)
}

// Path maps a /uploads/ locator to its file on disk.
//
// It reports false for locators outside the upload directory.
func (u *Uploads) Path(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || !validName(name) {
		return "", false
	}
	return filepath.Join(u.dir, name), true
}

// Remove deletes the file behind a locator. Unknown or already removed files are ignored.
func (u *Uploads) Remove(url string) error {
	path, ok := u.Path(url)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", url, err)
	}
	return nil
}

// ContentType returns the content type served for a file name, derived from its extension.
func ContentType(name string) string {
	if typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); typ != "" {
		return typ
	}
	return "application/octet-stream"
}

// validName accepts plain file names that cannot escape the upload directory.
func validName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}
