package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// IfaceConfig declares one wireless interface of the router host.
type IfaceConfig struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Phy      string   `json:"phy" yaml:"phy" toml:"phy"`
	Modes    []string `json:"modes" yaml:"modes" toml:"modes"`
	HighBand bool     `json:"high_band" yaml:"high_band" toml:"high_band"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string        `json:"addr" yaml:"addr" toml:"addr"`
	RouterAddr     string        `json:"router_addr" yaml:"router_addr" toml:"router_addr"`
	RouterUser     string        `json:"router_user" yaml:"router_user" toml:"router_user"`
	RouterPassword string        `json:"router_password" yaml:"router_password" toml:"router_password"`
	RouterKeyFile  string        `json:"router_key_file" yaml:"router_key_file" toml:"router_key_file"`
	SessionName    string        `json:"session_name" yaml:"session_name" toml:"session_name"`
	ResultsDir     string        `json:"results_dir" yaml:"results_dir" toml:"results_dir"`
	Interfaces     []IfaceConfig `json:"interfaces" yaml:"interfaces" toml:"interfaces"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
