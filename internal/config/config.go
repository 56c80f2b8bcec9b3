package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string          `yaml:"addr"`
	JWTSecret     string          `yaml:"jwt_secret"`
	APITimeout    time.Duration   `yaml:"timeout"`
	TokenDuration time.Duration   `yaml:"token_duration"`
	Database      DatabaseConfig  `yaml:"database"`
	Routing       RoutingConfig   `yaml:"routing"`
	Fleet         FleetConfig     `yaml:"fleet"`
	Heartbeat     HeartbeatConfig `yaml:"heartbeat"`
	Location      LocationConfig  `yaml:"location"`
	Agent         AgentConfig     `yaml:"agent"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RoutingConfig points at the external routing/ETA collaborator. The exact
// endpoint and auth scheme are deployment configuration.
type RoutingConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FleetConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LocationConfig configures the agent's location source. Lat/Lng back the
// static source used where no platform GPS integration exists.
type LocationConfig struct {
	Lat           float64       `yaml:"lat"`
	Lng           float64       `yaml:"lng"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	MinDistanceM  float64       `yaml:"min_distance_m"`
}

// AgentConfig carries the field-unit agent's credentials and optional
// initial assignment.
type AgentConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SiteID   string `yaml:"site_id"`
	Activity string `yaml:"activity"`
}

// LoadConfig builds a config from defaults, environment variables and an
// optional YAML file (highest precedence).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("NFO_ADDR", ":8080"),
		JWTSecret:     getEnv("NFO_JWT_SECRET", "supersecretkey"),
		APITimeout:    15 * time.Second,
		TokenDuration: 12 * time.Hour,
		Database: DatabaseConfig{
			Driver: getEnv("NFO_DB_DRIVER", "sqlite"),
			DSN:    getEnv("NFO_DB_DSN", "nfotrack.db"),
		},
		Routing: RoutingConfig{
			Endpoint: getEnv("NFO_ROUTING_ENDPOINT", ""),
			APIKey:   getEnv("NFO_ROUTING_API_KEY", ""),
			Timeout:  10 * time.Second,
		},
		Fleet:     FleetConfig{PollInterval: 10 * time.Second},
		Heartbeat: HeartbeatConfig{Interval: 30 * time.Second},
		Location: LocationConfig{
			WatchInterval: 5 * time.Second,
			MinDistanceM:  10,
		},
		Agent: AgentConfig{
			Username: getEnv("NFO_AGENT_USERNAME", ""),
			Password: getEnv("NFO_AGENT_PASSWORD", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate rejects configurations that cannot be run safely. The default JWT
// secret is only tolerated when NFO_ENV=development.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTSecret == "supersecretkey" && os.Getenv("NFO_ENV") != "development" {
		return fmt.Errorf("refusing to run with the default jwt_secret outside development")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.Fleet.PollInterval <= 0 {
		return fmt.Errorf("fleet poll interval must be positive")
	}
	if c.Routing.Endpoint != "" {
		if _, err := url.ParseRequestURI(c.Routing.Endpoint); err != nil {
			return fmt.Errorf("invalid routing endpoint: %w", err)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
