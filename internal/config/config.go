// Package config loads the server configuration from a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFiles is the glob used when server.files is not set.
	DefaultFiles = "**/*"
	// DefaultPort is the port used when port is not set.
	DefaultPort = 8080
	// DefaultCNAME is the host name shown in the startup log.
	DefaultCNAME = "localhost"
)

// ErrInvalid is returned (wrapped) when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Config is the fully resolved server configuration.
// It is read once at startup and never modified afterwards.
type Config struct {
	// Dirs holds the build directories.
	Dirs Dirs `toml:"dirs" yaml:"dirs"`
	// Server holds options for file collection.
	Server Server `toml:"server" yaml:"server"`
	// Port is the TCP port to listen on.
	Port int `toml:"port" yaml:"port"`
	// CNAME is the public host name, used only for logging.
	CNAME string `toml:"CNAME" yaml:"CNAME"`
	// MenuItems are client-side routes that always receive the app shell.
	MenuItems []MenuItem `toml:"menuItems" yaml:"menuItems"`
	// PageItems maps a public request path to an existing catalog path.
	PageItems map[string]string `toml:"pageItems" yaml:"pageItems"`
}

// Dirs holds the directories produced by the site build.
type Dirs struct {
	// Out is the build output directory served by the catalog.
	Out string `toml:"out" yaml:"out"`
}

// Server holds file collection options.
type Server struct {
	// Files is a glob selecting servable files. It is matched at any depth
	// below Dirs.Out: "*.js" selects /app.js and /js/lib.js alike.
	Files string `toml:"files" yaml:"files"`
}

// MenuItem is a client-side route. A '#' in Href marks a hash route whose
// path form replaces '#' with '/'.
type MenuItem struct {
	Href string `toml:"href" yaml:"href"`
}

// Load reads the config file at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the config file at path without defaults or validation, so
// callers can override fields first. The format is chosen by extension:
// .yaml and .yml are decoded as YAML, everything else as TOML.
// A relative dirs.out is resolved against the config file's directory.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml config %s: %w", path, err)
		}
	}

	if cfg.Dirs.Out != "" && !filepath.IsAbs(cfg.Dirs.Out) {
		cfg.Dirs.Out = filepath.Join(filepath.Dir(path), cfg.Dirs.Out)
	}
	return cfg, nil
}

// ApplyDefaults fills optional fields that were left empty.
func (c *Config) ApplyDefaults() {
	if c.Server.Files == "" {
		c.Server.Files = DefaultFiles
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CNAME == "" {
		c.CNAME = DefaultCNAME
	}
	if c.MenuItems == nil {
		c.MenuItems = []MenuItem{}
	}
	if c.PageItems == nil {
		c.PageItems = map[string]string{}
	}
}

// Validate checks the fields the server cannot run without.
func (c *Config) Validate() error {
	if c.Dirs.Out == "" {
		return fmt.Errorf("%w: dirs.out is required", ErrInvalid)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	for i, item := range c.MenuItems {
		if item.Href == "" {
			return fmt.Errorf("%w: menuItems[%d].href is empty", ErrInvalid, i)
		}
	}
	return nil
}
