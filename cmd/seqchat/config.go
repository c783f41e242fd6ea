package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigFile = "SEQCHAT_CONFIG"

// Config represents the seqchat configuration file
// (~/.config/seqchat/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	ModelDir  string `yaml:"model_dir"`
	ModelsDir string `yaml:"models_dir"`

	MaxLength  *int  `yaml:"max_length"`
	ShowTokens *bool `yaml:"show_tokens"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	NoColor   *bool  `yaml:"no_color"`
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigFile)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "seqchat", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig fills root logging flags from cfg unless they were set
// on the command line.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.NoColor != nil && !c.IsSet("no-color") {
		noColor = *cfg.NoColor
	}
}

// applyModelConfig fills model and decode flags from cfg unless they were
// set on the command line (or, for the model directory, the environment).
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.ModelDir != "" && !c.IsSet("model-dir") {
		modelDir = cfg.ModelDir
	}
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.MaxLength != nil && !c.IsSet("max-length") {
		maxLength = *cfg.MaxLength
	}
	if cfg.ShowTokens != nil && !c.IsSet("show-tokens") {
		showTokens = *cfg.ShowTokens
	}
}
