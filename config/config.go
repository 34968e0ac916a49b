// Package config loads the YAML file the command line tool and embedders
// use to build a render engine.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mcuadros/go-defaults"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/warriorguo/mediagraph/types"
)

const (
	StoreMem      = "mem"
	StorePostgres = "postgres"

	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Workers      int   `yaml:"workers" default:"4"`
	Divider      int   `yaml:"divider" default:"1"`
	Acceleration *bool `yaml:"acceleration"`
	KeepRecords  *bool `yaml:"keep_records"`
	// how long an uncollected finished job is kept, e.g. 30s
	JobRetention time.Duration `yaml:"job_retention" default:"1m"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"text"`
}

type StoreConfig struct {
	// mem or postgres
	Type     string                `yaml:"type" default:"mem"`
	Postgres *types.PostgresConfig `yaml:"postgres"`
}

func Default() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "read config %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Annotatef(err, "config %s", path)
	}
	return c, nil
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Trace(err)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.NotValidf("workers %d", c.Workers)
	}
	if c.Divider < 1 {
		return errors.NotValidf("divider %d", c.Divider)
	}
	if c.JobRetention < 0 {
		return errors.NotValidf("job retention %v", c.JobRetention)
	}

	c.Store.Type = strings.ToLower(c.Store.Type)
	switch c.Store.Type {
	case StoreMem:
	case StorePostgres:
		if c.Store.Postgres == nil {
			c.Store.Postgres = &types.PostgresConfig{}
		}
	default:
		return errors.NotValidf("store type %q", c.Store.Type)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NotValidf("log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return errors.NotValidf("log format %q", c.Log.Format)
	}
	return nil
}

// Options maps the file onto engine options, in the order they apply.
func (c *Config) Options() []types.RenderOption {
	opts := []types.RenderOption{
		types.SetWorkerCount(c.Workers),
		types.SetDivider(c.Divider),
		types.SetJobRetention(c.JobRetention),
	}
	if c.Acceleration != nil && !*c.Acceleration {
		opts = append(opts, types.DisableAcceleration())
	}
	if c.KeepRecords != nil && !*c.KeepRecords {
		opts = append(opts, types.DisableRecords())
	}
	switch c.Store.Type {
	case StorePostgres:
		opts = append(opts, types.WithPostgresConfig(c.Store.Postgres))
	default:
		opts = append(opts, types.EnableMemStore())
	}
	return opts
}

// ApplyLogging configures the standard logrus logger.
func (c *Config) ApplyLogging() error {
	return c.applyLogging(log.StandardLogger())
}

func (c *Config) applyLogging(logger *log.Logger) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return errors.NotValidf("log level %q", c.Log.Level)
	}
	logger.SetLevel(level)

	switch c.Log.Format {
	case FormatJSON:
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
