package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebox/internal/audio"
	"github.com/desertthunder/tunebox/internal/playback"
	"github.com/desertthunder/tunebox/internal/services"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play launches the terminal player against a running server.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Player
	serverURL := cmd.String("server")
	if serverURL == "" {
		serverURL = cfg.ServerURL
	}
	volume := cmd.Int("volume")
	if volume < 0 {
		volume = cfg.Volume
	}

	var startID int64
	if v := cmd.String("playlist"); v != "" {
		id, err := parseID(v, "playlist")
		if err != nil {
			return err
		}
		startID = id
	}

	api := services.NewAPIService(serverURL, r.httpClient)
	if err := api.Health(ctx); err != nil {
		return fmt.Errorf("%w: server at %s is not reachable: %v", shared.ErrServiceUnavailable, serverURL, err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	media := audio.NewPlayer(r.httpClient, fileLogger)
	if c, ok := media.(io.Closer); ok {
		defer c.Close()
	}

	model := ui.NewModel(ctx, api, media, fileLogger,
		playback.WithBaseURL(serverURL),
		playback.WithVolume(volume),
	)
	if startID != 0 {
		model.StartWith(startID)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running player: %w", err)
	}
	return model.Err()
}
