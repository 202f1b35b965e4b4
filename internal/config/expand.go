package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and any $VAR references in a path.
// The server command is configured by users and routinely written as
// "~/.rbenv/shims/solargraph" or "$GEM_HOME/bin/solargraph".
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" {
		path = homeDir()
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir(), path[2:])
	}

	return os.ExpandEnv(path)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}
