package config

import (
	"os"
	"path/filepath"
	"strings"
)

// expandPaths rewrites home-relative path settings so YAML like
// "state.path: ~/focus/data.json" works regardless of where the
// process was launched. Non-tilde paths pass through untouched.
func expandPaths(c *Config) {
	c.State.Path = expandHomePath(c.State.Path)
	c.Skillbook.Path = expandHomePath(c.Skillbook.Path)
	c.Logging.Dir = expandHomePath(c.Logging.Dir)
}

func expandHomePath(raw string) string {
	path := strings.TrimSpace(raw)
	if path == "" || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}

	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	// ~user form is not supported; leave it for the OS to reject.
	return path
}
