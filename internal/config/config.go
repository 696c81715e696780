package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tasklist.db"
	DefaultLogName        = "tasklist.log"

	EnvConfigPath = "TASKLIST_CONFIG"
	EnvDBPath     = "TASKLIST_DB_PATH"
	EnvLogPath    = "TASKLIST_LOG_PATH"
)

type Keymap struct {
	Quit    string `toml:"quit"`
	Add     string `toml:"add"`
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Delete  string `toml:"delete"`
	Edit    string `toml:"edit"`
	Reload  string `toml:"reload"`
	Confirm string `toml:"confirm"`
	Cancel  string `toml:"cancel"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	LogPath       string `toml:"log_path"`
	ConfirmDelete bool   `toml:"confirm_delete"`
	Keys          Keymap `toml:"keys"`
}

// LoadEnvFile loads a .env file into the process environment when one exists.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ResolveConfigPath picks the config file: flag value, then TASKLIST_CONFIG,
// then config.toml in the working directory.
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogName
	}
	fillKeys(&cfg.Keys)
	return cfg, nil
}

// ApplyEnv overrides file settings with TASKLIST_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		c.LogPath = v
	}
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// fillKeys restores defaults for bindings left blank in the file.
func fillKeys(k *Keymap) {
	d := defaultConfig().Keys
	set := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	set(&k.Quit, d.Quit)
	set(&k.Add, d.Add)
	set(&k.Up, d.Up)
	set(&k.Down, d.Down)
	set(&k.Delete, d.Delete)
	set(&k.Edit, d.Edit)
	set(&k.Reload, d.Reload)
	set(&k.Confirm, d.Confirm)
	set(&k.Cancel, d.Cancel)
}

func defaultConfig() Config {
	return Config{
		DBPath:        DefaultDBName,
		LogPath:       DefaultLogName,
		ConfirmDelete: true,
		Keys: Keymap{
			Quit:    "q",
			Add:     "a",
			Up:      "k",
			Down:    "j",
			Delete:  "d",
			Edit:    "e",
			Reload:  "r",
			Confirm: "enter",
			Cancel:  "esc",
		},
	}
}
