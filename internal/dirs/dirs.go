// Package dirs resolves per-user directories for vidtrack.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vidtrack"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// location describes where one kind of directory lives on each platform.
type location struct {
	xdgEnv     string   // Linux override variable.
	linuxHome  []string // Linux fallback under $HOME.
	darwinHome []string // macOS path under $HOME.
	other      func() (string, error)
	otherSub   string // Appended to other() after the app name.
}

var (
	configLoc = location{
		xdgEnv:     "XDG_CONFIG_HOME",
		linuxHome:  []string{".config"},
		darwinHome: []string{"Library", "Application Support"},
		other:      os.UserConfigDir,
	}
	stateLoc = location{
		xdgEnv:     "XDG_STATE_HOME",
		linuxHome:  []string{".local", "state"},
		darwinHome: []string{"Library", "Application Support", appName, "state"},
		other:      localAppData,
		otherSub:   "state",
	}
)

func (l location) resolve() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if v := os.Getenv(l.xdgEnv); v != "" {
			return filepath.Join(v, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, l.linuxHome...), appName)...), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p := filepath.Join(append([]string{home}, l.darwinHome...)...)
		if l.otherSub == "" {
			p = filepath.Join(p, appName)
		}
		return p, nil
	default:
		base, err := l.other()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appName, l.otherSub), nil
	}
}

func localAppData() (string, error) {
	if la := os.Getenv("LOCALAPPDATA"); la != "" {
		return la, nil
	}
	return os.UserConfigDir()
}

// ConfigDir returns the directory searched for config.{yaml,json,toml}.
// - Linux: $XDG_CONFIG_HOME/vidtrack or ~/.config/vidtrack
// - macOS: ~/Library/Application Support/vidtrack
// - Windows: %AppData%/vidtrack
func ConfigDir() (string, error) {
	return configLoc.resolve()
}

// StateDir returns the directory holding the log file.
// - Linux: $XDG_STATE_HOME/vidtrack or ~/.local/state/vidtrack
// - macOS: ~/Library/Application Support/vidtrack/state
// - Windows: %LocalAppData%/vidtrack/state
func StateDir() (string, error) {
	return stateLoc.resolve()
}

// LogFile returns the default log path used while the TUI owns the
// terminal.
func LogFile() (string, error) {
	d, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, appName+".log"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config and state dirs exist.
func EnsureAll() error {
	for _, resolve := range []func() (string, error){ConfigDir, StateDir} {
		p, err := resolve()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
