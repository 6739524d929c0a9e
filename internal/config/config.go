// internal/config/config.go
package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// BridgeConfig configures the local status bridge server.
type BridgeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Config is the tool configuration, loaded from ~/.edge_node/config.yaml.
// Every field has a built-in default so the file is optional.
type Config struct {
	DataDir         string       `yaml:"data_dir,omitempty"`
	Image           string       `yaml:"image,omitempty"`
	Tag             string       `yaml:"tag,omitempty"`
	ContainerPrefix string       `yaml:"container_prefix,omitempty"`
	RemotePrefix    []string     `yaml:"remote_prefix,omitempty"`
	MinNodeRAMGB    int          `yaml:"min_node_ram_gb,omitempty"`
	RefreshInterval string       `yaml:"refresh_interval,omitempty"`
	Bridge          BridgeConfig `yaml:"bridge,omitempty"`
}

// DefaultDataDir returns ~/.edge_node, falling back to a relative
// .edge_node directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DataDirName
	}
	return filepath.Join(home, constants.DataDirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), constants.ConfigFileName)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:         DefaultDataDir(),
		Image:           constants.DockerImage,
		Tag:             constants.DockerTag,
		ContainerPrefix: constants.ContainerPrefix,
		MinNodeRAMGB:    constants.MinNodeRAMGB,
		RefreshInterval: constants.RefreshInterval.String(),
		Bridge:          BridgeConfig{Addr: constants.DefaultBridgeAddr},
	}
}

// Load reads the config at path, or the default location when path is
// empty. A missing file yields pure defaults; a file that exists but does
// not parse or validate is an error, so configuration the user wrote is
// never silently discarded. Environment variables in the file are
// expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("No config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return cfg, nil
}

// Validate checks the field values the rest of the tool depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Image) == "" {
		return errors.New("image must not be empty")
	}
	if strings.TrimSpace(c.ContainerPrefix) == "" {
		return errors.New("container_prefix must not be empty")
	}
	if strings.ContainsAny(c.ContainerPrefix, " \t") {
		return errors.Errorf("container_prefix %q must not contain whitespace", c.ContainerPrefix)
	}
	if c.MinNodeRAMGB < 1 {
		return errors.Errorf("min_node_ram_gb must be at least 1, got %d", c.MinNodeRAMGB)
	}
	if c.RefreshInterval != "" {
		d, err := time.ParseDuration(c.RefreshInterval)
		if err != nil {
			return errors.Wrapf(err, "refresh_interval %q", c.RefreshInterval)
		}
		if d <= 0 {
			return errors.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
		}
	}
	if c.Bridge.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Bridge.Addr); err != nil {
			return errors.Wrapf(err, "bridge addr %q", c.Bridge.Addr)
		}
	}
	return nil
}

// Save writes the config as YAML to path, or the default location when
// path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultDirMode); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrapf(os.WriteFile(path, data, constants.DefaultFileMode), "write config file %s", path)
}

// ImageRef returns the full image reference, image:tag.
func (c *Config) ImageRef() string {
	if c.Tag == "" {
		return c.Image
	}
	return c.Image + ":" + c.Tag
}

// RefreshEvery returns the parsed refresh interval. Load validates the
// value, so malformed ones only appear on hand-built configs and fall back
// to the default.
func (c *Config) RefreshEvery() time.Duration {
	if c.RefreshInterval == "" {
		return constants.RefreshInterval
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		logging.Warning("Invalid refresh interval %q, using %s", c.RefreshInterval, constants.RefreshInterval)
		return constants.RefreshInterval
	}
	return d
}

// RegistryPath returns the container registry file location.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, constants.RegistryFileName)
}

// StorePath returns the node config store file location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, constants.StoreFileName)
}

// EnvFilePath returns the .env file location.
func (c *Config) EnvFilePath() string {
	return filepath.Join(c.DataDir, constants.EnvFileName)
}

// LogFilePath returns the rotating log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.DataDir, constants.LogDirName, constants.LogFileName)
}
