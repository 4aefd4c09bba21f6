// cmd/server/main.go
// This is the entry point for the FIFA Roster API server.
// The "cmd/server" directory follows a common Go convention: the cmd/ folder holds executable
// binaries, and internal/ holds packages that are not meant to be imported by other projects.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	// clockwork provides a Clock interface; the real clock here, a fake one in tests.
	"github.com/jonboulle/clockwork"
	// zerolog is a structured logger: every log line carries typed key/value fields.
	"github.com/rs/zerolog"
	// log is zerolog's global logger, shared by every package in the app.
	"github.com/rs/zerolog/log"

	// Internal packages: our own code, imported by module path
	"github.com/trentd187/fifa-roster/internal/config"
	"github.com/trentd187/fifa-roster/internal/database"
	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/handlers"
	"github.com/trentd187/fifa-roster/internal/jobs"
	"github.com/trentd187/fifa-roster/internal/media"
	"github.com/trentd187/fifa-roster/internal/middleware"
	"github.com/trentd187/fifa-roster/internal/store"
)

// tokenTTL is how long a session token issued at register/login stays valid.
const tokenTTL = 24 * time.Hour

// shutdownTimeout bounds how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from the environment (plus the optional .env and YAML files).
	// cfg is a pointer (*Config) containing all runtime settings like port, database URL, etc.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Human-readable logs while developing, JSON lines in production for log shippers.
	// SetGlobalLevel drops every log call below the level, so Debug lines cost nothing in production.
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Validate catches bad combinations early (e.g. ImageStore "s3" without a bucket),
	// so the server refuses to start rather than failing on the first request.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// ctx is cancelled on Ctrl-C or a container stop, which starts the graceful shutdown below.
	// stop() unregisters the signal handler; "defer" runs it when main returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL. The pool is shared by every request; each query or
	// transaction checks a connection out and returns it when done.
	db, err := database.Connect(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn().Err(err).Msg("failed to close database pool")
		}
	}()

	// Run any pending SQL migrations so the schema (and the team_players view) is current.
	// Running them on startup means a fresh database is usable as soon as the server is up.
	if err := database.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The store owns every SQL statement. Handlers never touch *gorm.DB directly, so
	// transactions, retries and error classification live in one place.
	roster := store.New(db)

	// Player portraits go to local disk (served at /images) or to an S3-compatible bucket.
	var images media.Store
	uploadDir := ""
	switch cfg.ImageStore {
	case "s3":
		images, err = media.NewS3(ctx, media.S3Options{
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		})
	default:
		images, err = media.NewLocal(cfg.UploadDir, "images")
		uploadDir = cfg.UploadDir
	}
	if err != nil {
		log.Fatal().Err(err).Str("image_store", cfg.ImageStore).Msg("failed to set up image storage")
	}

	// Roster change events go to NATS when a URL is configured; otherwise they are dropped.
	// Both satisfy the events.Publisher interface, so handlers don't know which one they have.
	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, closeNATS, err := events.Connect(cfg.NATSURL, cfg.EventSubjectPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer closeNATS()
		publisher = nc
	}

	// Session tokens are optional; without JWT_SECRET the auth routes just return the user id.
	tokens := middleware.NewTokens(cfg.JWTSecret, tokenTTL)
	if tokens == nil {
		log.Info().Msg("JWT_SECRET not set, session tokens disabled")
	}

	// Background job that keeps every team's avg_ovr consistent with its roster.
	// Roster changes already recompute it in their transaction; the job repairs rows
	// edited outside the API. An interval of 0 turns it off.
	if cfg.RatingRefreshInterval > 0 {
		refresher, err := jobs.NewRatingRefresher(roster, cfg.RatingRefreshInterval, cfg.RequestTimeout, clockwork.NewRealClock())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to schedule rating refresh")
		}
		refresher.Start()
		defer func() {
			if err := refresher.Shutdown(); err != nil {
				log.Warn().Err(err).Msg("rating refresher did not stop cleanly")
			}
		}()
	}

	// Build the Fiber app: global middleware plus every route, all registered in handlers.NewApp.
	// Deps is a plain struct, so everything a handler uses is visible right here.
	app := handlers.NewApp(handlers.Deps{
		DB:             db,
		Store:          roster,
		Images:         images,
		Events:         publisher,
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		UploadDir:      uploadDir,
		BodyLimit:      16 * 1024 * 1024,
	})

	// Listen in a goroutine so main can wait for the shutdown signal.
	// ":" + cfg.Port produces a string like ":8080": listen on all network interfaces.
	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// select waits on whichever happens first: the server failing, or a shutdown signal.
	select {
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		// Stop accepting connections and give in-flight requests up to shutdownTimeout to finish.
		// The deferred calls above then stop the job, drain NATS and close the pool.
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
