package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigDir returns the platform-specific configuration directory for padbridge.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "PadBridge"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "padbridge"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "padbridge"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// DefaultConfigPath is DefaultNamedConfigPath with base name "config".
func DefaultConfigPath(format string) (string, error) {
	return DefaultNamedConfigPath("config", format)
}

// DefaultNamedConfigPath returns <config dir>/<baseName>.<ext>; unknown
// formats get ".json".
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	switch format {
	case "yaml", "yml":
		ext = "yaml"
	case "toml":
		ext = "toml"
	}
	return filepath.Join(dir, baseName+"."+ext), nil
}

// EnsureDir creates the parent directory of filePath.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// SystemConfigDir holds machine-wide configuration on unix.
const SystemConfigDir = "/etc/padbridge"

// ConfigCandidatePaths lists config files per loader in priority order: the
// user supplied path (routed by extension, json when unknown), then
// padbridge/config/server files in the working directory, the user config
// directory and, on unix, SystemConfigDir.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			yamlPaths = append(yamlPaths, userPath)
		case ".toml":
			tomlPaths = append(tomlPaths, userPath)
		default:
			jsonPaths = append(jsonPaths, userPath)
		}
	}

	addDir := func(dir string, bases ...string) {
		for _, base := range bases {
			p := filepath.Join(dir, base)
			jsonPaths = append(jsonPaths, p+".json")
			yamlPaths = append(yamlPaths, p+".yaml", p+".yml")
			tomlPaths = append(tomlPaths, p+".toml")
		}
	}

	if wd, err := os.Getwd(); err == nil {
		addDir(wd, "padbridge", "config", "server")
	}
	if dir, err := DefaultConfigDir(); err == nil {
		addDir(dir, "config", "server")
	}
	if runtime.GOOS != "windows" {
		addDir(SystemConfigDir, "config", "server")
	}
	return jsonPaths, yamlPaths, tomlPaths
}
