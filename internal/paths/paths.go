// Package paths resolves run directory names, artifact category directories,
// and the configuration and base directory locations used by the CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultBaseDirName is the CWD-relative directory that receives runs when
// nothing else is configured.
const DefaultBaseDirName = "outputs"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "NOTATA_CONFIG_DIR"
	EnvBaseDir   = "NOTATA_BASE_DIR"
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
// Linux:   $XDG_CONFIG_HOME/notata (fallback ~/.config/notata)
// macOS:   ~/Library/Application Support/notata
// Windows: %APPDATA%/notata
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "notata"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "notata"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "notata"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > NOTATA_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveBaseDir returns the directory holding run directories following the
// precedence chain: flag > configYAMLValue > NOTATA_BASE_DIR env > $(CWD)/outputs.
func ResolveBaseDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvBaseDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultBaseDirName), nil
}
