package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/audio"
	"github.com/desertthunder/tunebox/internal/media"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      models.Store
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      models.Store // Used instead of opening the configured database when set
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, usersCommand, songsCommand, playlistsCommand, importCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// LoadConfig reads the configuration named by the --config flag (or TUNEBOX_CONFIG).
//
// A missing file keeps the defaults so commands work before `setup config`.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}

	r.config = config
	r.configPath = path
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// openStore returns the injected store, or opens the configured database.
//
// The returned close function must be called when the command finishes.
func (r *Runner) openStore() (models.Store, func(), error) {
	if r.store != nil {
		return r.store, func() {}, nil
	}

	store, err := repositories.OpenSQLStore(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
	}, nil
}

func (r *Runner) uploads() (*media.Uploads, error) {
	return media.NewUploads(r.config.Server.UploadDir, audio.ProbeDuration, r.logger)
}

func (r *Runner) engine(store models.Store) (*tasks.LibraryEngine, error) {
	uploads, err := r.uploads()
	if err != nil {
		return nil, err
	}
	return tasks.NewLibraryEngine(store, uploads, r.logger), nil
}

// owner resolves the --user flag, falling back to the configured default user.
func (r *Runner) owner(ctx context.Context, cmd *cli.Command, store models.Store) (*models.User, error) {
	username := cmd.String("user")
	if username == "" {
		return repositories.EnsureUser(ctx, store, r.config.Server.DefaultUser)
	}
	return store.GetUserByUsername(ctx, username)
}

func parseID(s, entity string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: %s id is required", shared.ErrMissingArgument, entity)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", shared.ErrInvalidArgument, entity, s)
	}
	return id, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
