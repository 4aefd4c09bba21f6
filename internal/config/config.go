// Package config handles loading and validating runtime configuration for the roster API.
// Values come from three layers, lowest priority first:
//  1. An optional YAML tuning file named by CONFIG_FILE (timeouts, pool sizes, directories)
//  2. A .env file in the working directory, loaded into the process environment
//  3. Real environment variables, which always win
//
// Secrets (database password, JWT secret, S3 keys) are only ever read from the environment.
// There are no built-in credential defaults: an unset DB_PASSWORD stays empty.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port string // TCP port the HTTP server listens on
	Env  string // "development", "staging", or "production"

	DatabaseURL    string // Full postgres DSN; built from DB_* parts when DATABASE_URL is unset
	MigrationsPath string // Directory holding the golang-migrate .sql files
	MaxOpenConns   int
	MaxIdleConns   int

	RequestTimeout        time.Duration // Upper bound on a single request's database work
	RatingRefreshInterval time.Duration // How often team avg_ovr is recomputed; 0 disables the job

	UploadDir  string // Where player images are written when ImageStore is "local"
	ImageStore string // "local" or "s3"
	S3         S3Config

	JWTSecret string // HS256 signing key for session tokens; empty disables token issuance

	NATSURL            string // Empty means roster events are only logged
	EventSubjectPrefix string

	AllowedOrigins string // Comma-separated CORS origins
}

// S3Config describes an S3-compatible bucket (AWS S3, Cloudflare R2, MinIO) for player images.
type S3Config struct {
	Bucket          string
	Endpoint        string // Custom endpoint for R2/MinIO; empty uses the AWS default
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // Prefix for the URLs stored as imagedir
}

// fileConfig is the shape of the optional YAML tuning file.
// Durations are strings in time.ParseDuration format ("10s", "5m").
type fileConfig struct {
	Port                  string `yaml:"port"`
	MigrationsPath        string `yaml:"migrations_path"`
	UploadDir             string `yaml:"upload_dir"`
	ImageStore            string `yaml:"image_store"`
	RequestTimeout        string `yaml:"request_timeout"`
	RatingRefreshInterval string `yaml:"rating_refresh_interval"`
	MaxOpenConns          int    `yaml:"max_open_conns"`
	MaxIdleConns          int    `yaml:"max_idle_conns"`
	EventSubjectPrefix    string `yaml:"event_subject_prefix"`
	AllowedOrigins        string `yaml:"allowed_origins"`
}

// Load reads configuration and returns a populated Config.
// A missing .env file is fine (production sets real environment variables).
// A CONFIG_FILE that is set but unreadable or malformed is an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                  "8080",
		Env:                   "development",
		MigrationsPath:        "migrations",
		MaxOpenConns:          10,
		MaxIdleConns:          5,
		RequestTimeout:        10 * time.Second,
		RatingRefreshInterval: 5 * time.Minute,
		UploadDir:             "static/images",
		ImageStore:            "local",
		EventSubjectPrefix:    "roster",
		AllowedOrigins:        "*",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.MigrationsPath, fc.MigrationsPath)
	setString(&c.UploadDir, fc.UploadDir)
	setString(&c.ImageStore, fc.ImageStore)
	setString(&c.EventSubjectPrefix, fc.EventSubjectPrefix)
	setString(&c.AllowedOrigins, fc.AllowedOrigins)
	if fc.MaxOpenConns > 0 {
		c.MaxOpenConns = fc.MaxOpenConns
	}
	if fc.MaxIdleConns > 0 {
		c.MaxIdleConns = fc.MaxIdleConns
	}
	if err := setDuration(&c.RequestTimeout, "request_timeout", fc.RequestTimeout); err != nil {
		return err
	}
	return setDuration(&c.RatingRefreshInterval, "rating_refresh_interval", fc.RatingRefreshInterval)
}

func (c *Config) applyEnv() error {
	setString(&c.Port, os.Getenv("PORT"))
	setString(&c.Env, os.Getenv("ENV"))
	setString(&c.MigrationsPath, os.Getenv("MIGRATIONS_PATH"))
	setString(&c.UploadDir, os.Getenv("UPLOAD_DIR"))
	setString(&c.ImageStore, os.Getenv("IMAGE_STORE"))
	setString(&c.EventSubjectPrefix, os.Getenv("EVENT_SUBJECT_PREFIX"))
	setString(&c.AllowedOrigins, os.Getenv("ALLOWED_ORIGINS"))

	c.JWTSecret = os.Getenv("JWT_SECRET")
	c.NATSURL = os.Getenv("NATS_URL")

	c.S3 = S3Config{
		Bucket:          os.Getenv("S3_BUCKET"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		Region:          envOr("S3_REGION", "auto"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		PublicBaseURL:   os.Getenv("CDN_BASE_URL"),
	}

	if err := setInt(&c.MaxOpenConns, "DB_MAX_OPEN_CONNS"); err != nil {
		return err
	}
	if err := setInt(&c.MaxIdleConns, "DB_MAX_IDLE_CONNS"); err != nil {
		return err
	}
	if err := setDuration(&c.RequestTimeout, "REQUEST_TIMEOUT", os.Getenv("REQUEST_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&c.RatingRefreshInterval, "RATING_REFRESH_INTERVAL", os.Getenv("RATING_REFRESH_INTERVAL")); err != nil {
		return err
	}

	c.DatabaseURL = os.Getenv("DATABASE_URL")
	if c.DatabaseURL == "" {
		c.DatabaseURL = dsnFromParts()
	}
	return nil
}

// dsnFromParts builds a postgres URL from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and
// DB_SSLMODE. Returns "" when DB_HOST or DB_NAME is missing so Validate can report it.
func dsnFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     host + ":" + envOr("DB_PORT", "5432"),
		Path:     "/" + name,
		RawQuery: "sslmode=" + envOr("DB_SSLMODE", "disable"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass, ok := os.LookupEnv("DB_PASSWORD"); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL (or DB_HOST and DB_NAME) must be set")
	}
	switch c.ImageStore {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET must be set when IMAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q (want local or s3)", c.ImageStore)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production settings (JSON logs, no banners).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
