// Package config loads the dispatchd configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/geo"
	"github.com/fleetworks/dispatchd/core/metrics"
	"github.com/fleetworks/dispatchd/core/model"
	"github.com/fleetworks/dispatchd/core/scheduler"
)

type Config struct {
	Engine    engine.Config    `json:"engine"`
	Scheduler scheduler.Config `json:"scheduler"`
	DB        DBConfig         `json:"db"`
	Redis     RedisConfig      `json:"redis"`
	Audit     AuditConfig      `json:"audit"`
	Metrics   metrics.Config   `json:"metrics"`
	API       APIConfig        `json:"api"`
	Maps      MapsConfig       `json:"maps"`
	Sites     []SiteConfig     `json:"sites"`
}

// DBConfig points at the PostgreSQL instance holding orders and, optionally,
// the audit log.
type DBConfig struct {
	DSN string `json:"dsn"`
}

// RedisConfig points at the Redis instance holding latest vehicle positions.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// AuditConfig selects the audit backend: "memory", "jsonl" or "postgres".
type AuditConfig struct {
	Backend string `json:"backend"`
	// Path is the log file location for the jsonl backend.
	Path string `json:"path"`
}

func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

func (c AuditConfig) Validate() error {
	switch c.Backend {
	case "memory", "postgres":
		return nil
	case "jsonl":
		if c.Path == "" {
			return fmt.Errorf("audit: jsonl backend requires a path")
		}
		return nil
	default:
		return fmt.Errorf("audit: unknown backend %q", c.Backend)
	}
}

// APIConfig configures the read-only audit HTTP API. An empty Addr disables
// the server.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// MapsConfig configures the Google Maps road-distance calculator. An empty
// key falls back to straight-line haversine distances.
type MapsConfig struct {
	APIKey string `json:"api_key"`
}

// SiteConfig declares one geofenced site.
type SiteConfig struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM float64 `json:"radius_m"`
}

// SiteDirectory builds the static site directory from the configured sites.
func (c Config) SiteDirectory() geo.StaticSites {
	sites := make(geo.StaticSites, len(c.Sites))
	for _, s := range c.Sites {
		radius := s.RadiusM
		if radius <= 0 {
			radius = geo.DefaultGeofenceRadiusM
		}
		sites[s.ID] = geo.Site{
			ID:      s.ID,
			Center:  model.Point{Lat: s.Lat, Lng: s.Lng},
			RadiusM: radius,
		}
	}
	return sites
}

// Load reads the configuration file, applies DISPATCHD_ environment
// overrides, fills defaults and validates every block.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. DISPATCHD_DB__DSN.
	if err := k.Load(env.Provider("DISPATCHD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatchd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Engine.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Audit.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
