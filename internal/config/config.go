package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names an alternate config file.
const EnvConfigFile = "AGENTCHECK_CONFIG"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Check  CheckConfig  `yaml:"check"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"` // default 7118
	Host string `yaml:"host"` // default "127.0.0.1"
}

type StoreConfig struct {
	Type    string `yaml:"type"`    // "bolt" or "memory"
	DataDir string `yaml:"dataDir"` // default "~/.agentcheck/data"
}

type CheckConfig struct {
	Root            string        `yaml:"root"`            // directory document paths resolve against, default "."
	Profile         string        `yaml:"profile"`         // built-in profile name, default "backend-engineer"
	ProfileFile     string        `yaml:"profileFile"`     // optional AgentProfile manifest overriding Profile
	RecheckInterval time.Duration `yaml:"recheckInterval"` // serve: poll documents this often, 0 disables
	HistoryLimit    int           `yaml:"historyLimit"`    // runs kept per profile after a recheck, 0 keeps all
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default "warn"
	Format string `yaml:"format"` // "console" or "json", default "console"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7118,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Type:    "bolt",
			DataDir: defaultDataDir(),
		},
		Check: CheckConfig{
			Root:    ".",
			Profile: "backend-engineer",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path falls back to $AGENTCHECK_CONFIG and then ~/.agentcheck/config.yaml;
// a missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "bolt", "memory":
	default:
		return fmt.Errorf("unknown store type %q (want bolt or memory)", c.Store.Type)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.Log.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Check.RecheckInterval < 0 {
		return fmt.Errorf("recheckInterval must not be negative")
	}
	if c.Check.HistoryLimit < 0 {
		return fmt.Errorf("historyLimit must not be negative")
	}
	return nil
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the BoltDB file (DataDir + "/agentcheck.db").
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.DataDir, "agentcheck.db")
}

// DefaultConfigPath returns ~/.agentcheck/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentcheck", "config.yaml")
}

// defaultDataDir resolves the default data directory.
// It uses os.UserHomeDir() + "/.agentcheck/data", falling back to
// "/tmp/agentcheck/data" if the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "agentcheck", "data")
	}
	return filepath.Join(home, ".agentcheck", "data")
}
