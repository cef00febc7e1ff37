package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/de-tools/epi-atlas/pkg/beds"
	"github.com/de-tools/epi-atlas/pkg/ode"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "EPI"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Beds   BedsConfig   `mapstructure:"beds"`
	Solver SolverConfig `mapstructure:"solver"`
	Batch  BatchConfig  `mapstructure:"batch"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BedsConfig selects the region table. Unset bed settings fall back to the
// table file, then to the built-in defaults.
type BedsConfig struct {
	RegionsFile  string   `mapstructure:"regions_file"`
	TotalICUBeds *float64 `mapstructure:"total_icu_beds"`
	ICUFraction  *float64 `mapstructure:"icu_fraction"`
}

type SolverConfig struct {
	RelTol   float64 `mapstructure:"rel_tol"`
	AbsTol   float64 `mapstructure:"abs_tol"`
	MaxStep  float64 `mapstructure:"max_step"`
	MaxSteps int     `mapstructure:"max_steps"`
}

type BatchConfig struct {
	MaxSize     int `mapstructure:"max_size"`
	Parallelism int `mapstructure:"parallelism"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads an optional config file (any format viper understands)
// and applies EPI_* environment overrides, e.g. EPI_SERVER_PORT.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"beds.total_icu_beds", "beds.icu_fraction"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	solver := ode.DefaultOptions()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("beds.regions_file", "")
	v.SetDefault("solver.rel_tol", solver.RelTol)
	v.SetDefault("solver.abs_tol", solver.AbsTol)
	v.SetDefault("solver.max_step", solver.MaxStep)
	v.SetDefault("solver.max_steps", solver.MaxSteps)
	v.SetDefault("batch.max_size", 32)
	v.SetDefault("batch.parallelism", 4)
	v.SetDefault("log.level", "info")
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) SolverOptions() ode.Options {
	opts := ode.DefaultOptions()
	opts.RelTol = c.Solver.RelTol
	opts.AbsTol = c.Solver.AbsTol
	opts.MaxStep = c.Solver.MaxStep
	opts.MaxSteps = c.Solver.MaxSteps
	return opts
}

func (c *Config) TableConfig() (beds.TableConfig, error) {
	table := beds.DefaultTableConfig()
	if c.Beds.RegionsFile != "" {
		loaded, err := beds.LoadTable(c.Beds.RegionsFile)
		if err != nil {
			return beds.TableConfig{}, err
		}
		table = loaded
	}
	if c.Beds.TotalICUBeds != nil {
		table.TotalBeds = *c.Beds.TotalICUBeds
	}
	if c.Beds.ICUFraction != nil {
		table.ICUFraction = *c.Beds.ICUFraction
	}
	return table, nil
}

func (c *Config) LogLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
