package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultWindows are the accepted dashboard time windows in hours; 0 is all time.
var DefaultWindows = []int{0, 1, 6, 12, 24, 48, 72, 168}

// YAMLConfig represents the structure of the dashboard.yaml file.
type YAMLConfig struct {
	Prewarm []PrewarmConfig `yaml:"prewarm"`
	Windows []int           `yaml:"windows"`
}

// PrewarmConfig names one cached dataset kept warm in the background.
type PrewarmConfig struct {
	Dataset string `yaml:"dataset"` // "dashboard", "latestLeads" or "leadJourney"
	Window  int    `yaml:"window"`  // hours, 0 for all time
}

// DefaultYAMLConfig is used when no file exists.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Prewarm: []PrewarmConfig{
			{Dataset: "dashboard", Window: 0},
			{Dataset: "latestLeads", Window: 0},
		},
		Windows: append([]int(nil), DefaultWindows...),
	}
}

// LoadYAMLConfig loads the YAML configuration file at path.
// Returns the defaults without error if the file doesn't exist.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return DefaultYAMLConfig(), nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Set defaults
	if len(cfg.Windows) == 0 {
		cfg.Windows = append([]int(nil), DefaultWindows...)
	}
	for _, p := range cfg.Prewarm {
		if p.Window < 0 {
			return nil, fmt.Errorf("prewarm %s: negative window %d", p.Dataset, p.Window)
		}
		// Dashboard keys are only ever requested for accepted windows.
		if p.Dataset == "dashboard" && !cfg.HasWindow(p.Window) {
			return nil, fmt.Errorf("prewarm %s: window %d is not in windows %v", p.Dataset, p.Window, cfg.Windows)
		}
	}

	return &cfg, nil
}

// HasWindow reports whether hours is an accepted window.
func (c *YAMLConfig) HasWindow(hours int) bool {
	if c == nil {
		return false
	}
	for _, w := range c.Windows {
		if w == hours {
			return true
		}
	}
	return false
}
