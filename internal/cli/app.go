package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/tracksync/internal/config"
	"github.com/roach88/tracksync/internal/remote"
	"github.com/roach88/tracksync/internal/store"
	"github.com/roach88/tracksync/internal/track"
	"github.com/roach88/tracksync/internal/tracksync"
)

// app is the wiring shared by track commands: configuration, the local
// store, the optional Redis remote and the sync engine over both.
type app struct {
	cfg     config.Config
	store   *store.Store
	redis   *redis.Client
	engine  *tracksync.Engine
	user    string
	log     *slog.Logger
	out     *OutputFormatter
	printer *message.Printer
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig loads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.User != "" {
		cfg.Sync.User = o.User
	}
	if o.Device != "" {
		cfg.Sync.Device = o.Device
	}
	return cfg, nil
}

// open loads configuration and opens the stores. Callers must Close.
func (o *RootOptions) open(cmd *cobra.Command) (*app, error) {
	out := o.formatter(cmd)

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to load configuration", err)
	}

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Database.Path)

	a := &app{
		cfg:     cfg,
		store:   st,
		user:    cfg.Sync.User,
		log:     logger,
		out:     out,
		printer: message.NewPrinter(language.Make(cfg.Output.Locale)),
	}

	var rs tracksync.RemoteStore
	if cfg.Remote.Addr != "" {
		a.redis = remote.Connect(remote.Options{
			Addr:     cfg.Remote.Addr,
			Password: cfg.Remote.Password,
			DB:       cfg.Remote.DB,
		})
		rs = remote.NewRedis(a.redis, cfg.Remote.Prefix)
		logger.Debug("remote configured", "addr", cfg.Remote.Addr, "user", a.user)
	}

	a.engine = tracksync.New(st, rs, tracksync.Options{
		DeviceID:      cfg.Sync.Device,
		RemoteTimeout: cfg.Remote.Timeout,
		Logger:        logger,
	})
	return a, nil
}

// Close releases the stores.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("error closing redis client", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
}

// loadTrack fetches id through the engine and reports a miss as a
// command failure.
func (a *app) loadTrack(ctx context.Context, id string) (track.Track, error) {
	t, ok, err := a.engine.Get(ctx, id, a.user)
	if err != nil {
		return track.Track{}, a.storeFailure("failed to load track", err)
	}
	if !ok {
		return track.Track{}, a.out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("track %s not found", id), nil)
	}
	return t, nil
}

// save stores t through the engine.
func (a *app) save(ctx context.Context, t track.Track) (tracksync.SaveResult, error) {
	res, err := a.engine.Save(ctx, t, a.user)
	if err != nil {
		return res, a.storeFailure("failed to save track", err)
	}
	return res, nil
}

// storeFailure maps an engine error to an exit code. Local store failures
// are environmental; anything else is a rejected operation.
func (a *app) storeFailure(message string, err error) error {
	if tracksync.IsLocalStoreFailure(err) {
		return a.out.Fail(ExitCommandError, CodeStore, message, err)
	}
	a.log.Debug("operation rejected", "error", err)
	return a.out.Fail(ExitFailure, CodeInvalidArgs, message, err)
}
