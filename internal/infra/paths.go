package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName = "crypto-dash"
)

// GetWorkspaceDir returns the root directory for all runtime data.
// A local "_workspace" directory wins when present (portable/dev mode).
func GetWorkspaceDir() string {
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return localDir
		}
		baseDir = dir
	}
	if baseDir == "" {
		return localDir
	}

	return filepath.Join(baseDir, AppName)
}

// DefaultDBPath is the SQLite file used when storage.path is empty.
func DefaultDBPath() string {
	return filepath.Join(GetWorkspaceDir(), "data", "cryptodash.db")
}

// DefaultAssetsDir is the icon cache used when assets.dir is empty.
func DefaultAssetsDir() string {
	return filepath.Join(GetWorkspaceDir(), "assets", "icons")
}

// ResolveConfigPath attempts to find the config.yaml.
// Priority: 1. Current Dir, 2. OS Config Dir
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")

	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	configRoot, err := os.UserConfigDir()
	if err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	// LoadConfig reports the missing file
	return defaultPath
}
