// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"collabmap/internal/adapter/storage"
	"collabmap/internal/config"
	"collabmap/internal/domain/maplib"
	"collabmap/internal/logging"
	"collabmap/internal/server"
	"collabmap/internal/service/audience"
	"collabmap/internal/service/geocode"
	"collabmap/internal/service/mapsession"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Environment, cfg.LogLevel)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer natsConn.Close()

	// Initialize storage adapter
	creatorStore := storage.NewCreatorStore(db)

	// Initialize geocoder
	geocoder := geocode.NewNominatimGeocoder(geocode.Config{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout,
	})

	// Initialize map session manager
	sessionManager, err := mapsession.NewManager(
		creatorStore,
		natsConn,
		cfg.NATS.CreatorSubject,
		mapsession.Config{
			TileURL:         cfg.Map.TileURL,
			TileAttribution: cfg.Map.TileAttribution,
			WorldCenter:     maplib.LatLng{Lat: cfg.Map.WorldLat, Lng: cfg.Map.WorldLng},
			WorldZoom:       cfg.Map.WorldZoom,
			CloseZoom:       cfg.Map.CloseZoom,
			BoundsPadding:   cfg.Map.BoundsPadding,
			ReadyChecks:     cfg.Map.ReadyChecks,
			ReadyInterval:   cfg.Map.ReadyInterval,
		},
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session manager")
	}

	// Initialize follower-count sync
	var syncer *audience.Syncer
	if cfg.Audience.Enabled {
		syncer = audience.NewSyncer(
			creatorStore,
			audience.NewTwitterSource(cfg.Audience.BearerToken),
			natsConn,
			audience.SyncerConfig{
				Interval: cfg.Audience.SyncInterval,
				Subject:  cfg.NATS.CreatorSubject,
			},
			log,
		)
		syncer.Start(ctx)
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		creatorStore,
		geocoder,
		sessionManager,
		log,
	)

	// Start HTTP server
	go func() {
		log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Info().Msg("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// Stop background services
	if syncer != nil {
		syncer.Stop()
	}
	sessionManager.Shutdown()

	log.Info().Msg("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, log zerolog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
