package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Lists that are awkward to express as env vars live here.
type YAMLConfig struct {
	Admins []string             `yaml:"admins"` // emails or OIDC subjects granted the admin role
	Seed   []SeedLocationConfig `yaml:"seed"`   // development sample data
}

// SeedLocationConfig is a sample location inserted in development.
type SeedLocationConfig struct {
	Category       string  `yaml:"category"`
	Name           string  `yaml:"name"`
	Address        string  `yaml:"address"`
	OperatingHours string  `yaml:"operating_hours"`
	Description    string  `yaml:"description"`
	Lat            float64 `yaml:"lat"`
	Lng            float64 `yaml:"lng"`
	Status         string  `yaml:"status"`
}

// LoadYAMLConfig loads the YAML configuration file at path.
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Seed {
		if cfg.Seed[i].Status == "" {
			cfg.Seed[i].Status = "approved"
		}
	}

	return &cfg, nil
}

// IsAdmin reports whether the email or subject is on the admin list.
func (c *YAMLConfig) IsAdmin(email, sub string) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Admins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.EqualFold(a, email) || a == sub {
			return true
		}
	}
	return false
}
