package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/contactgain/internal/api"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/logger"
	"github.com/wolfeidau/contactgain/internal/server"
	"github.com/wolfeidau/contactgain/internal/store"
	memorystore "github.com/wolfeidau/contactgain/internal/store/memory"
	postgresstore "github.com/wolfeidau/contactgain/internal/store/postgres"
	redisstore "github.com/wolfeidau/contactgain/internal/store/redis"
	"github.com/wolfeidau/contactgain/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"CONTACTGAIN_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"CONTACTGAIN_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"CONTACTGAIN_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"CONTACTGAIN_CORS_ORIGINS"`

	// Operational modes
	Tracing          bool          `help:"enable tracing and metrics export" default:"false" env:"CONTACTGAIN_TRACING"`
	TraceSampleRatio float64       `help:"fraction of requests traced when tracing is enabled" default:"1" env:"CONTACTGAIN_TRACE_SAMPLE_RATIO"`
	PurgeInterval    time.Duration `help:"how often contacts past the grace period are removed" default:"10m" env:"CONTACTGAIN_PURGE_INTERVAL"`

	// Store configuration
	StoreType     string             `help:"store type (memory, postgres or redis)" default:"memory" env:"CONTACTGAIN_STORE_TYPE" enum:"memory,postgres,redis"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	RedisStore    RedisStoreFlags    `embed:"" prefix:"redis-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Store Configuration
	QueryTimeout int32 `help:"per statement timeout in seconds" default:"10"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"CONTACTGAIN_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

type RedisStoreFlags struct {
	Addr     string `help:"Redis address (host:port)" default:"localhost:6379" env:"REDIS_ADDR"`
	Password string `help:"Redis password" default:"" env:"REDIS_PASSWORD"`
	DB       int    `help:"Redis logical database" default:"0" env:"REDIS_DB"`
	PoolSize int    `help:"maximum number of Redis connections" default:"10"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "contactgain-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	sessionStore, closeStore, err := c.createSessionStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	clock := lifecycle.SystemClock{}

	purger := server.NewPurger(ctx, sessionStore, clock, c.PurgeInterval)
	defer purger.Stop()

	service := server.NewSessionService(sessionStore, server.WithClock(clock))
	apiHandler := server.NewServer(service).Handler(log)

	handler, err := newHandler(apiHandler, c.CORSOrigins)
	if err != nil {
		return err
	}

	handler = gzhttp.GzipHandler(handler)

	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "contactgain-server")
	}

	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	if c.Cert != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Str("store", c.StoreType).Msg("Starting HTTP server")
		if c.Cert != "" {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// createSessionStore builds the configured store. The returned func releases its connections.
func (c *ServerCmd) createSessionStore(ctx context.Context, log zerolog.Logger) (store.SessionStore, func(), error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return nil, nil, err
		}

		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		// Run migrations if enabled
		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		sessionStore, err := postgresstore.NewSessionStore(pool, &postgresstore.SessionStoreConfig{
			QueryTimeoutSeconds: c.PostgresStore.QueryTimeout,
		})
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create session store: %w", err)
		}

		log.Info().Msg("Using PostgreSQL session store")
		return sessionStore, pool.Close, nil

	case "redis":
		client, err := redisstore.NewClient(ctx, &redisstore.ClientConfig{
			Addr:     c.RedisStore.Addr,
			Password: c.RedisStore.Password,
			DB:       c.RedisStore.DB,
			PoolSize: c.RedisStore.PoolSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		log.Info().Msg("Using Redis session store")
		return redisstore.NewSessionStore(client), closeWith(log, client), nil

	default:
		log.Warn().Msg("Using in-memory session store, data is lost on restart")
		return memorystore.NewSessionStore(), func() {}, nil
	}
}

func closeWith(log zerolog.Logger, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store connection")
		}
	}
}

// newHandler mounts the API behind CORS and cross-origin protection. Browser
// POSTs from origins outside corsOrigins are rejected with 403; clients that
// send neither Sec-Fetch-Site nor Origin, like the CLI, pass through.
func newHandler(apiHandler http.Handler, corsOrigins []string) (http.Handler, error) {
	protection := csrf.New()
	for _, origin := range corsOrigins {
		if origin == "*" {
			continue
		}
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", withCORS(corsOrigins, protection.Handler(apiHandler)))
	mux.Handle("/health", apiHandler)

	return mux, nil
}

// withCORS adds CORS support to the JSON API handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", api.CreatorIDHeader},
		ExposedHeaders: []string{"Content-Disposition", "Location", api.DownloadCountHeader},
		MaxAge:         600,
	})
	return middleware.Handler(h)
}
