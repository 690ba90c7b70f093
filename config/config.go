// Package config loads settings from a YAML file with PWI_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sealdice/perworld/perworld/types"
)

const EnvPrefix = "PWI_"

var (
	ErrConfigRead    = errors.New("cannot read config file")
	ErrConfigInvalid = errors.New("invalid config")

	Drivers = []string{"memory", "flatfile", "buntdb", "sqlite", "redis"}
)

type Config struct {
	SeparateGamemodeInventories bool          `yaml:"separate-gamemode-inventories" env:"SEPARATE_GAMEMODE_INVENTORIES"`
	ManageGamemodes             bool          `yaml:"manage-gamemodes"              env:"MANAGE_GAMEMODES"`
	FlushPeriod                 time.Duration `yaml:"flush-period"                  env:"FLUSH_PERIOD"`
	Debug                       bool          `yaml:"debug-mode"                    env:"DEBUG"`

	SaveWorkers int     `yaml:"save-workers" env:"SAVE_WORKERS"`
	SaveQueue   int     `yaml:"save-queue"   env:"SAVE_QUEUE"`
	SaveRate    float64 `yaml:"save-rate"    env:"SAVE_RATE"` // 每秒，0 为不限

	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`
	Bridge  Bridge  `yaml:"bridge"  envPrefix:"BRIDGE_"`

	Groups map[string]GroupConfig `yaml:"groups"`
}

type Storage struct {
	Driver   string `yaml:"driver"   env:"DRIVER"`
	Path     string `yaml:"path"     env:"PATH"` // flatfile 目录 / buntdb、sqlite 文件
	Addr     string `yaml:"addr"     env:"ADDR"` // redis
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db"       env:"DB"`
}

// Bridge 宿主连接：Listen 等待宿主插件连入，Connect 主动连接宿主插件
type Bridge struct {
	Listen  string `yaml:"listen"  env:"LISTEN"`
	Connect string `yaml:"connect" env:"CONNECT"`
	Token   string `yaml:"token"   env:"TOKEN"`
}

type GroupConfig struct {
	Worlds          []string       `yaml:"worlds,flow"`
	DefaultGameMode types.GameMode `yaml:"default-gamemode"`
}

func Default() Config {
	return Config{
		SeparateGamemodeInventories: true,
		ManageGamemodes:             false,
		FlushPeriod:                 5 * time.Minute,
		SaveWorkers:                 2,
		SaveQueue:                   256,
		Storage: Storage{
			Driver: "flatfile",
			Path:   "data",
		},
		Bridge: Bridge{
			Listen: "127.0.0.1:8765",
		},
		Groups: map[string]GroupConfig{
			"default": {
				Worlds:          []string{"world", "world_nether", "world_the_end"},
				DefaultGameMode: types.GameModeSurvival,
			},
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), PWI_* environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigRead, path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %w", ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse overlays YAML onto cfg. A groups section replaces the default groups.
func Parse(data []byte, cfg *Config) error {
	var probe struct {
		Groups map[string]GroupConfig `yaml:"groups"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Groups != nil {
		cfg.Groups = nil
	}
	return yaml.Unmarshal(data, cfg)
}

func (c Config) Validate() error {
	if c.FlushPeriod <= 0 {
		return fmt.Errorf("%w: flush-period must be positive", ErrConfigInvalid)
	}
	if c.SaveWorkers < 1 {
		return fmt.Errorf("%w: save-workers must be at least 1", ErrConfigInvalid)
	}
	if c.SaveQueue < 1 {
		return fmt.Errorf("%w: save-queue must be at least 1", ErrConfigInvalid)
	}
	if c.SaveRate < 0 {
		return fmt.Errorf("%w: save-rate must not be negative", ErrConfigInvalid)
	}
	if !slices.Contains(Drivers, c.Storage.Driver) {
		return fmt.Errorf("%w: unknown storage driver %q", ErrConfigInvalid, c.Storage.Driver)
	}
	for name, g := range c.Groups {
		if name == "" {
			return fmt.Errorf("%w: group with empty name", ErrConfigInvalid)
		}
		if len(g.Worlds) == 0 {
			return fmt.Errorf("%w: group %q has no worlds", ErrConfigInvalid, name)
		}
	}
	return nil
}

// Save writes the config as YAML, e.g. to produce a starter file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
