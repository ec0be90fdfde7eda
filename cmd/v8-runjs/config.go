package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file.
//
//	flags: ["--max-old-space-size=64"]
//	timeout: 2s
//	prefix: "js> "
//	preload: [lib/polyfills.js]
//	globals:
//	  env: production
//	  limits: {items: 10}
type Config struct {
	Flags   []string               `yaml:"flags"`
	Timeout time.Duration          `yaml:"timeout"`
	Prefix  string                 `yaml:"prefix"`
	Preload []string               `yaml:"preload"`
	Globals map[string]interface{} `yaml:"globals"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("parse config %s: negative timeout %v", path, cfg.Timeout)
	}
	return cfg, nil
}
