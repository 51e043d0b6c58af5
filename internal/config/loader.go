package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name.
const DefaultConfigFile = ".ytscan"

// LoadConfigFile loads a YAML configuration file. A missing file yields
// ErrConfigNotFound so callers can decide whether that matters.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	sites := make(map[string]SiteConfig, len(cf.Sites))
	for target, site := range cf.Sites {
		sites[SiteKey(target)] = site
	}
	cf.Sites = sites
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile returns the configuration file to use:
// 1. configPath when given and it exists
// 2. .ytscan in the current directory
// 3. ytscan.yaml in the XDG config directory
// 4. .ytscan in the home directory
//
// It returns "" when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "ytscan.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Apply copies file-level settings into c. Values already set on c from
// flags are left alone when overridden is true for that name.
func (c *Config) Apply(cf *File, overridden func(flag string) bool) {
	if cf == nil {
		return
	}
	c.SiteConfigs = cf
	if len(cf.Languages) > 0 && !overridden("lang") {
		c.Languages = cf.Languages
	}
	if cf.Policy != "" && !overridden("policy") {
		c.Policy = cf.Policy
	}
}
