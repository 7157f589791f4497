// Package config manages YAML-based configuration for the filehub server.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GitConfig controls how the git binary is invoked.
type GitConfig struct {
	Binary          string   `yaml:"binary"`
	SuppressConsole bool     `yaml:"suppress_console"`
	Env             []string `yaml:"env,omitempty"`
}

// Config holds all configuration options for filehub
type Config struct {
	Host         string    `yaml:"host"`
	Port         int       `yaml:"port"`
	Open         bool      `yaml:"open"`
	Git          GitConfig `yaml:"git"`
	AllowOrigins []string  `yaml:"allow_origins"`
	AllowHosts   []string  `yaml:"allow_hosts"`
	DebugLog     string    `yaml:"debug_log,omitempty"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 8080,
		Git: GitConfig{
			Binary:          "git",
			SuppressConsole: runtime.GOOS == "windows",
		},
		AllowOrigins: []string{},
		AllowHosts:   []string{},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/filehub"
	}
	return filepath.Join(home, ".config", "filehub")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load reads configuration from explicitPath, or from the first of
// ~/.config/filehub/config.yaml and ./filehub.yaml that exists. Only an
// explicitly named file that cannot be read is an error.
func Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	cfgPath := explicitPath
	if cfgPath == "" {
		if _, err := os.Stat(GetConfigPath()); err == nil {
			cfgPath = GetConfigPath()
		} else if _, err := os.Stat("filehub.yaml"); err == nil {
			cfgPath = "filehub.yaml"
		}
	}

	if cfgPath == "" {
		cfg.configPath = GetConfigPath()
		return cfg, nil
	}

	if err := cfg.loadFromFile(cfgPath); err != nil && explicitPath != "" {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	cfg.configPath = cfgPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks values a config file or flag may have broken.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Git.Binary == "" {
		return errors.New("git.binary must not be empty")
	}
	for _, kv := range c.Git.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return fmt.Errorf("invalid git.env entry %q, want KEY=VALUE", kv)
		}
	}
	return nil
}

// Save writes the configuration to its config file
func (c *Config) Save() error {
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the address a browser should open.
func (c *Config) URL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// AllowsAllOrigins reports whether "*" opens the API to any origin.
func (c *Config) AllowsAllOrigins() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// IsOriginAllowed checks a cross-origin Origin header against AllowOrigins.
// An empty list admits only requests that carry no Origin.
func (c *Config) IsOriginAllowed(origin string) bool {
	if origin == "" || c.AllowsAllOrigins() {
		return true
	}
	for _, o := range c.AllowOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// IsHostAllowed checks a request Host header. Loopback names, the listen
// host and AllowHosts are accepted; "*" in AllowHosts accepts any host.
func (c *Config) IsHostAllowed(hostport string) bool {
	host := hostname(hostport)
	if host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	if listen := hostname(c.Host); listen != "" && !isUnspecified(listen) && listen == host {
		return true
	}
	for _, h := range c.AllowHosts {
		if h == "*" || hostname(h) == host {
			return true
		}
	}
	return false
}

func hostname(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	return strings.ToLower(host)
}

func isUnspecified(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}

// SetConfigFilePath changes where Save writes.
func (c *Config) SetConfigFilePath(path string) {
	c.configPath = path
}
