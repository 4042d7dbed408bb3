// Package config handles loading and validating the application
// configuration.
//
// Settings are read from an optional JSON file first, then overridden by
// environment variables. A .env file in the working directory is loaded
// into the environment before overrides are applied, so secrets can be
// kept out of the JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential modes. Exactly one is active per process.
const (
	AuthModeToken   = "token"
	AuthModeSession = "session"
)

// Media backends.
const (
	MediaBackendS3    = "s3"
	MediaBackendLocal = "local"
)

// Storage backends for records.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration. It is read once at
// startup; changes require a restart.
type Config struct {
	// ListenAddr is the HTTP listen address (default ":3000").
	ListenAddr string `json:"listenAddr"`

	// DatabaseURL is the PostgreSQL connection URI.
	DatabaseURL string `json:"databaseUrl"`

	// Storage selects where records live: "postgres" (default) or
	// "memory" for local development without a database.
	Storage string `json:"storage"`

	// AuthMode selects the credential variant: "token" issues signed
	// bearer tokens, "session" issues server-held session cookies.
	AuthMode string `json:"authMode"`

	// JWTSecret signs bearer tokens in token mode.
	JWTSecret string `json:"jwtSecret"`

	// SessionSecret signs session cookie values in session mode.
	SessionSecret string `json:"sessionSecret"`

	// CredentialTTL is how long an issued token or session stays valid.
	CredentialTTL Duration `json:"credentialTTL"`

	// BcryptCost is the password hashing work factor.
	BcryptCost int `json:"bcryptCost"`

	// UploadDir is where incoming files are staged for the duration of
	// a single request.
	UploadDir string `json:"uploadDir"`

	// MaxUploadBytes caps a single staged file.
	MaxUploadBytes int64 `json:"maxUploadBytes"`

	// MediaBackend selects the remote store: "s3" or "local".
	MediaBackend string `json:"mediaBackend"`

	S3Bucket        string `json:"s3Bucket"`
	S3Region        string `json:"s3Region"`
	S3Endpoint      string `json:"s3Endpoint,omitempty"`
	S3PublicBaseURL string `json:"s3PublicBaseUrl"`
	S3AccessKey     string `json:"-"`
	S3SecretKey     string `json:"-"`

	// LocalMediaDir holds objects when MediaBackend is "local". They are
	// served under /media.
	LocalMediaDir string `json:"localMediaDir"`

	// PublicBaseURL is the externally visible base URL of this server,
	// used to build local media URLs.
	PublicBaseURL string `json:"publicBaseUrl"`

	// CORSOrigins lists allowed origins (default "*").
	CORSOrigins []string `json:"corsOrigins"`

	// RateLimitPerMinute is the per-client request budget.
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
}

// Duration is a time.Duration that unmarshals from a Go duration string
// such as "12h".
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads configuration from the JSON file at path (a missing file is
// not an error), applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage, "STORAGE")
	setString(&c.AuthMode, "AUTH_MODE")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.MediaBackend, "MEDIA_BACKEND")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&c.S3AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.S3SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.LocalMediaDir, "LOCAL_MEDIA_DIR")
	setString(&c.PublicBaseURL, "PUBLIC_BASE_URL")

	if v := env("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	if v := env("CREDENTIAL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CREDENTIAL_TTL: %w", err)
		}
		c.CredentialTTL.Duration = d
	}
	if v := env("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BCRYPT_COST: %w", err)
		}
		c.BcryptCost = n
	}
	if v := env("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v := env("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE: %w", err)
		}
		c.RateLimitPerMinute = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":3000"
	}
	if c.Storage == "" {
		c.Storage = StoragePostgres
	}
	if c.AuthMode == "" {
		c.AuthMode = AuthModeToken
	}
	if c.CredentialTTL.Duration == 0 {
		c.CredentialTTL.Duration = 12 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.UploadDir == "" {
		c.UploadDir = "public/uploads"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 5 * 1000000
	}
	if c.MediaBackend == "" {
		c.MediaBackend = MediaBackendS3
	}
	if c.LocalMediaDir == "" {
		c.LocalMediaDir = "public/media"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
}

// validate checks that all required fields are present for the selected
// modes.
func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: databaseUrl is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: storage must be %q or %q", StoragePostgres, StorageMemory)
	}

	switch c.AuthMode {
	case AuthModeToken:
		if c.JWTSecret == "" {
			return fmt.Errorf("config: jwtSecret is required")
		}
	case AuthModeSession:
		if c.SessionSecret == "" {
			return fmt.Errorf("config: sessionSecret is required")
		}
	default:
		return fmt.Errorf("config: authMode must be %q or %q", AuthModeToken, AuthModeSession)
	}

	switch c.MediaBackend {
	case MediaBackendS3:
		switch {
		case c.S3Bucket == "":
			return fmt.Errorf("config: s3Bucket is required")
		case c.S3Region == "":
			return fmt.Errorf("config: s3Region is required")
		}
	case MediaBackendLocal:
		if c.PublicBaseURL == "" {
			return fmt.Errorf("config: publicBaseUrl is required")
		}
	default:
		return fmt.Errorf("config: mediaBackend must be %q or %q", MediaBackendS3, MediaBackendLocal)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
