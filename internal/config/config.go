// Package config loads process configuration from the environment and an optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the immutable process configuration. Build it with Load and pass it explicitly.
type Config struct {
	ProjectName string `envconfig:"PROJECT_NAME" default:"Universal API"`
	Version     string `envconfig:"VERSION" default:"0.1.0"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`

	Log
	Database
	Auth
	Server
}

// Log configures logging.
type Log struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE"`
	JSON  bool   `envconfig:"LOG_JSON" default:"true"`
}

// Database configures storage.
type Database struct {
	Driver   string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	URL      string `envconfig:"DATABASE_URL"`
	Hostname string `envconfig:"DATABASE_HOSTNAME"`
	Port     int    `envconfig:"DATABASE_PORT" default:"5432"`
	User     string `envconfig:"DATABASE_USER" default:"postgres"`
	Password string `envconfig:"DATABASE_PASSWORD"`
	Name     string `envconfig:"DATABASE_NAME"`
	SSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
}

// Auth configures token verification and failed-authentication lockout.
type Auth struct {
	HMACSecret      string        `envconfig:"AUTH_HMAC_SECRET"`
	PublicKeyFile   string        `envconfig:"AUTH_PUBLIC_KEY_FILE"`
	Issuer          string        `envconfig:"AUTH_ISSUER"`
	Audience        string        `envconfig:"AUTH_AUDIENCE"`
	Leeway          time.Duration `envconfig:"AUTH_LEEWAY" default:"30s"`
	LockoutWindow   time.Duration `envconfig:"AUTH_LOCKOUT_WINDOW" default:"15m"`
	LockoutMaxFails int           `envconfig:"AUTH_LOCKOUT_MAX_FAILS" default:"5"`
	LockoutBlock    time.Duration `envconfig:"AUTH_LOCKOUT_BLOCK" default:"15m"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

// Server configures listeners and lifecycle.
type Server struct {
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCHealthAddr      string        `envconfig:"GRPC_HEALTH_ADDR"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	HealthProbeInterval time.Duration `envconfig:"HEALTH_PROBE_INTERVAL" default:"10s"`
}

// EnvFileVar names the variable that selects the dotenv file.
const EnvFileVar = "ENV_FILE_OVERRIDE"

// Load reads envFile (or $ENV_FILE_OVERRIDE, or .env) if it exists, then the process
// environment, and validates the result. Variables already set in the environment win.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = os.Getenv(EnvFileVar)
	}
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var problems []error
	if c.HMACSecret == "" && c.PublicKeyFile == "" {
		problems = append(problems, errors.New("one of AUTH_HMAC_SECRET or AUTH_PUBLIC_KEY_FILE is required"))
	}
	switch c.Driver {
	case DriverPostgres:
		if c.DSN() == "" {
			problems = append(problems, errors.New("DATABASE_URL or DATABASE_HOSTNAME and DATABASE_NAME are required for the postgres driver"))
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Driver))
	}
	if c.RateLimitRPS < 0 {
		problems = append(problems, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		problems = append(problems, errors.New("RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	if c.LockoutMaxFails > 0 && (c.LockoutWindow <= 0 || c.LockoutBlock <= 0) {
		problems = append(problems, errors.New("AUTH_LOCKOUT_WINDOW and AUTH_LOCKOUT_BLOCK must be positive when lockout is enabled"))
	}
	if c.HTTPAddr == "" {
		problems = append(problems, errors.New("HTTP_ADDR is required"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the DATABASE_* parts.
// It is empty when neither is configured.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Hostname == "" || c.Name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// ServiceTag is the value of the X-Service response header.
func (c Config) ServiceTag() string { return c.ProjectName + "@" + c.Version }
