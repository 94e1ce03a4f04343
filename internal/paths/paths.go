// Package paths resolves the configuration directory and the database file
// used by the embedsql command.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user directories.
const appName = "embedsql"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else selects one.
const DefaultDataDirName = ".embedsql"

// DefaultDatabaseName is the database file created inside the data directory.
const DefaultDatabaseName = "embedsql.db"

// Environment variable names for overrides.
const (
	EnvConfigDir = "EMBEDSQL_CONFIG_DIR"
	EnvDataDir   = "EMBEDSQL_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/embedsql (fallback ~/.config/embedsql)
// macOS:   ~/Library/Application Support/embedsql
// Windows: %APPDATA%/embedsql
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/embedsql (fallback ~/.local/share/embedsql)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func xdgDir(env string, fallback ...string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > EMBEDSQL_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// EMBEDSQL_DATA_DIR > $(CWD)/.embedsql.
func ResolveDataDir() (string, error) {
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveDatabase returns the database location following the precedence
// chain: flag > config.yaml value > ResolveDataDir()/embedsql.db. The
// in-memory name ":memory:" and file: URIs are returned unchanged.
func ResolveDatabase(flag, configYAMLValue string) (string, error) {
	for _, v := range []string{flag, configYAMLValue} {
		if v == "" {
			continue
		}
		if v == ":memory:" || isURI(v) {
			return v, nil
		}
		return filepath.Abs(v)
	}
	dir, err := ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDatabaseName), nil
}

func isURI(v string) bool {
	return len(v) >= 5 && v[:5] == "file:"
}
