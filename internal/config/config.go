// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Map         MapConfig
	Audience    AudienceConfig
	Geocode     GeocodeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	CreatorSubject string
}

// MapConfig holds map session configuration
type MapConfig struct {
	TileURL         string
	TileAttribution string
	WorldLat        float64
	WorldLng        float64
	WorldZoom       int
	CloseZoom       int
	BoundsPadding   float64
	ReadyChecks     int
	ReadyInterval   time.Duration
}

// AudienceConfig holds follower-count sync configuration
type AudienceConfig struct {
	Enabled      bool
	SyncInterval time.Duration
	BearerToken  string
}

// GeocodeConfig holds geocoder configuration
type GeocodeConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "collabmap"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			CreatorSubject: getEnv("NATS_CREATOR_SUBJECT", "creators.updated"),
		},
		Map: MapConfig{
			TileURL:         getEnv("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
			TileAttribution: getEnv("MAP_TILE_ATTRIBUTION", "&copy; OpenStreetMap contributors"),
			WorldLat:        getEnvAsFloat("MAP_WORLD_LAT", 20.0),
			WorldLng:        getEnvAsFloat("MAP_WORLD_LNG", 0.0),
			WorldZoom:       getEnvAsInt("MAP_WORLD_ZOOM", 2),
			CloseZoom:       getEnvAsInt("MAP_CLOSE_ZOOM", 13),
			BoundsPadding:   getEnvAsFloat("MAP_BOUNDS_PADDING", 0.3),
			ReadyChecks:     getEnvAsInt("MAP_READY_CHECKS", 20),
			ReadyInterval:   getEnvAsDuration("MAP_READY_INTERVAL", 250*time.Millisecond),
		},
		Audience: AudienceConfig{
			Enabled:      getEnvAsBool("AUDIENCE_SYNC_ENABLED", false),
			SyncInterval: getEnvAsDuration("AUDIENCE_SYNC_INTERVAL", 6*time.Hour),
			BearerToken:  getEnv("TWITTER_BEARER_TOKEN", ""),
		},
		Geocode: GeocodeConfig{
			BaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("GEOCODE_USER_AGENT", "collabmap/1.0"),
			Timeout:   getEnvAsDuration("GEOCODE_TIMEOUT", 10*time.Second),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Audience.Enabled && config.Audience.BearerToken == "" {
		return fmt.Errorf("TWITTER_BEARER_TOKEN must be set when audience sync is enabled")
	}

	if config.Map.WorldZoom < 2 || config.Map.WorldZoom > 18 {
		return fmt.Errorf("MAP_WORLD_ZOOM must be between 2 and 18")
	}

	if config.Map.CloseZoom < 2 || config.Map.CloseZoom > 18 {
		return fmt.Errorf("MAP_CLOSE_ZOOM must be between 2 and 18")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
