package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/server"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the REST API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	var (
		store models.Store
		done  func()
		err   error
	)
	if cmd.Bool("memory") {
		r.logger.Warn("using in-memory store, data is lost on exit")
		store, done = repositories.NewMemoryStore(), func() {}
	} else if store, done, err = r.openStore(); err != nil {
		return err
	}
	defer done()

	cfg := r.config.Server
	owner, err := repositories.EnsureUser(ctx, store, cfg.DefaultUser)
	if err != nil {
		return fmt.Errorf("failed to prepare default user %q: %w", cfg.DefaultUser, err)
	}

	uploads, err := r.uploads()
	if err != nil {
		return err
	}

	api, err := server.NewAPI(server.Options{
		Store:     store,
		Uploads:   uploads,
		Owner:     owner,
		Limiter:   server.NewLimiter(cfg),
		MaxUpload: cfg.MaxUploadBytes(),
		Logger:    shared.WithLogger(r.logger, "component", "api"),
	})
	if err != nil {
		return err
	}

	srv := server.NewHTTPServer(cfg, server.NewHandler(api, uploads, r.logger))
	if addr := cmd.String("addr"); addr != "" {
		srv.Addr = addr
	}

	r.logger.Info("serving", "owner", owner.Username, "uploads", uploads.Dir(), "base_url", cfg.BaseURL)
	return server.Run(ctx, srv, r.logger)
}
