package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/diaghi13/dggm-sub002/pkg/infrastructure/repositories/database"
)

// EnvPrefix prefixes every environment override, e.g. DGGM_DATABASE_DSN
const EnvPrefix = "DGGM"

// Config holds the runtime configuration of the dggm tool
type Config struct {
	Database    DatabaseConfig `mapstructure:"database"`
	Engine      EngineConfig   `mapstructure:"engine"`
	Log         LogConfig      `mapstructure:"log"`
	Concurrency int            `mapstructure:"concurrency"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

type EngineConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.dsn", "file:dggm.db?_foreign_keys=on")
	v.SetDefault("engine.max_depth", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("concurrency", 4)
}

// Load reads the optional YAML file at path, then applies DGGM_ environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return errors.Newf("unsupported database driver %q (expected %s or %s)",
			c.Database.Driver, database.DriverSQLite, database.DriverPostgres)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn cannot be empty")
	}
	if c.Engine.MaxDepth < 1 {
		return errors.Newf("engine max depth must be at least 1, got %d", c.Engine.MaxDepth)
	}
	if c.Concurrency < 1 {
		return errors.Newf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}
