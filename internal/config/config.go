// Package config loads the CLI tool configuration from file and
// environment sources.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Configuration controls the schematic tool's checker integration
type Configuration struct {
	// KicadCLI is the kicad-cli executable path; empty means discover it
	KicadCLI      string  `koanf:"kicad_cli"`
	TimeoutSecs   int     `koanf:"timeout_secs" validate:"min=1,max=3600"`
	MaxIterations int     `koanf:"max_iterations" validate:"min=1,max=50"`
	GridUnit      float64 `koanf:"grid_unit" validate:"gt=0"`
	ShowProgress  bool    `koanf:"show_progress"`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"kicad_cli":      "",
		"timeout_secs":   60,
		"max_iterations": 5,
		"grid_unit":      1.27,
		"show_progress":  true,
	}
}

// Load loads configuration from an optional config file and environment
// variables. Priority: environment variables > config file > defaults.
func Load(configPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		k.Set(key, value)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	k.Load(env.Provider("KICADSCH_", ".", envTransform), nil)

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envTransform converts environment variable names to config keys
// Example: KICADSCH_MAX_ITERATIONS -> max_iterations
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "KICADSCH_"))
}
