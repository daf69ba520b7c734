package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "copilot"

// Paths are the per-user directories copilot reads from and writes to.
type Paths struct {
	// Config holds the global copilot.json[c].
	Config string
	// Data holds local storage.
	Data string
}

// GetPaths resolves Paths from XDG_CONFIG_HOME and XDG_DATA_HOME, falling
// back to the platform's per-user directories.
func GetPaths() *Paths {
	return &Paths{
		Config: filepath.Join(configHome(), appDir),
		Data:   filepath.Join(dataHome(), appDir),
	}
}

// StoragePath is the default root of the file store.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// DatabasePath is the default SQLite database file.
func (p *Paths) DatabasePath() string {
	return filepath.Join(p.Data, "copilot.db")
}

// GlobalConfigPath returns the global config file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, "copilot.json")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if dir, err := os.UserConfigDir(); err == nil {
			return dir
		}
	}
	return filepath.Join(homeDir(), ".config")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
