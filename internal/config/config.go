// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/solargraph-ai/solarbridge/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/solarbridge/)
//  2. Project config (solarbridge.{json,jsonc,yaml} and .solarbridge/)
//  3. SOLARBRIDGE_CONFIG file
//  4. SOLARBRIDGE_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Missing sources are skipped; later sources override earlier ones.
func Load(directory string) (*types.Config, error) {
	config := types.Default()

	// A project .env can hold SOLARBRIDGE_* overrides.
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	loaded := make(map[string]bool)

	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalDir := GetPaths().Config
	for _, name := range configNames() {
		loadOnce(filepath.Join(globalDir, name))
	}

	// 2. Project config
	if directory != "" {
		for _, name := range configNames() {
			loadOnce(filepath.Join(directory, name))
			loadOnce(filepath.Join(directory, ".solarbridge", name))
		}
	}

	// 3. SOLARBRIDGE_CONFIG file override
	if configPath := os.Getenv("SOLARBRIDGE_CONFIG"); configPath != "" {
		loadOnce(configPath)
	}

	// 4. SOLARBRIDGE_CONFIG_CONTENT inline JSON
	if content := os.Getenv("SOLARBRIDGE_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal([]byte(content), &inline); err == nil {
			merge(config, &inline)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	config.Command = ExpandPath(config.Command)

	return config, nil
}

func configNames() []string {
	return []string{
		"solarbridge.json",
		"solarbridge.jsonc",
		"solarbridge.yaml",
		"solarbridge.yml",
	}
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	data = interpolate(data)

	var fileConfig types.Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		// jsonc strips comments; plain JSON passes through unchanged.
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return err
		}
	}

	merge(config, &fileConfig)
	return nil
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate processes {env:VAR} placeholders.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// merge merges source config into target.
func merge(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Command != "" {
		target.Command = source.Command
	}
	if source.Args != nil {
		target.Args = source.Args
	}
	if source.Host != "" {
		target.Host = source.Host
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.StartupTimeoutSeconds != 0 {
		target.StartupTimeoutSeconds = source.StartupTimeoutSeconds
	}
	if source.WaitReady {
		target.WaitReady = true
	}
	if source.Markers != nil {
		target.Markers = source.Markers
	}
	if source.WatchWorkspaces {
		target.WatchWorkspaces = true
	}
	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
		if source.Server.EnableCORS != nil {
			target.Server.EnableCORS = source.Server.EnableCORS
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if command := os.Getenv("SOLARBRIDGE_COMMAND"); command != "" {
		config.Command = command
	}
	if args := os.Getenv("SOLARBRIDGE_ARGS"); args != "" {
		config.Args = strings.Fields(args)
	}
	if level := os.Getenv("SOLARBRIDGE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if host := os.Getenv("SOLARBRIDGE_HOST"); host != "" {
		config.Host = host
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
