// Package types contains the shared data types for solarbridge.
package types

import "time"

// Config holds the bridge configuration.
type Config struct {
	Schema string `json:"$schema,omitempty" yaml:"-"`

	// Command is the solargraph executable. Supports ~ and $VAR expansion.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Args are the arguments passed to the executable.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Host is the address the spawned server announces its port on.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// StartupTimeoutSeconds bounds the wait for the port announcement.
	StartupTimeoutSeconds int `json:"startupTimeout,omitempty" yaml:"startupTimeout,omitempty"`

	// WaitReady probes the announced port until it accepts connections.
	WaitReady bool `json:"waitReady,omitempty" yaml:"waitReady,omitempty"`

	// Markers are the file names that identify a workspace root.
	Markers []string `json:"markers,omitempty" yaml:"markers,omitempty"`

	// WatchWorkspaces invalidates cached workspace roots when marker
	// files are added or removed under a resolved root.
	WatchWorkspaces bool `json:"watchWorkspaces,omitempty" yaml:"watchWorkspaces,omitempty"`

	Server *ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
}

// ServerConfig configures the editor-facing HTTP API.
type ServerConfig struct {
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Hostname   string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	EnableCORS *bool  `json:"enableCors,omitempty" yaml:"enableCors,omitempty"`
}

// Default returns a Config with every field at its default value.
func Default() *Config {
	return &Config{
		Command:               "solargraph",
		Args:                  []string{"socket"},
		Host:                  "localhost",
		LogLevel:              "INFO",
		StartupTimeoutSeconds: 30,
		Markers:               []string{"Gemfile", ".git"},
		Server: &ServerConfig{
			Port:     7658,
			Hostname: "127.0.0.1",
		},
	}
}

// StartupTimeout returns the port-discovery deadline as a duration.
func (c *Config) StartupTimeout() time.Duration {
	if c.StartupTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.StartupTimeoutSeconds) * time.Second
}

// CORSEnabled reports whether the HTTP API should allow cross-origin
// requests. Defaults to true when unset.
func (c *ServerConfig) CORSEnabled() bool {
	return c == nil || c.EnableCORS == nil || *c.EnableCORS
}
