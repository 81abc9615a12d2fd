package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/gopxl/beep/v2"
)

// source is a decoded track ready to play.
type source struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func (s *source) duration() time.Duration {
	return s.format.SampleRate.D(s.streamer.Len())
}

// fetcher loads and decodes sources.
type fetcher struct {
	client *http.Client
}

func newFetcher(client *http.Client) fetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return fetcher{client: client}
}

// load reads src, an http(s) URL, file URL or local path, and decodes it.
func (f fetcher) load(ctx context.Context, src string) (*source, error) {
	data, err := f.read(ctx, src)
	if err != nil {
		return nil, err
	}

	streamer, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &source{streamer: streamer, format: format}, nil
}

func (f fetcher) read(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		path := src
		if err == nil && u.Scheme == "file" {
			path = u.Path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %d", shared.ErrAPIRequest, src, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
