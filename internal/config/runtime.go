package config

import (
	"os"
	"path/filepath"
)

func GetRuntimePath() string {
	path := os.Getenv("STRIDE_RUNTIME_PATH")
	if path == "" {
		path = ".stride"
	}
	return resolvePath(path)
}

// resolvePath anchors a relative runtime path at the user's home directory.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path)
}
