package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	configFileName = "studio-bridge.yaml"
	envFileName    = ".env"
)

// ConfigPaths holds the detected locations of the configuration files
type ConfigPaths struct {
	ConfigDir  string // per-user configuration directory
	ConfigFile string // studio-bridge.yaml
	EnvFile    string // .env next to the working directory
}

// DetectConfigPaths detects the configuration paths based on the operating system
func DetectConfigPaths() (ConfigPaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigPaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var configDir string
	switch runtime.GOOS {
	case "darwin":
		configDir = filepath.Join(home, "Library/Application Support/studio-bridge")
	case "linux":
		// Honour XDG_CONFIG_HOME when set
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "studio-bridge")
		} else {
			configDir = filepath.Join(home, ".config/studio-bridge")
		}
	case "windows":
		configDir = filepath.Join(home, "AppData", "Roaming", "studio-bridge")
	default:
		return ConfigPaths{}, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}

	return ConfigPaths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		EnvFile:    envFileName,
	}, nil
}

// GetConfigPaths returns config paths, using customPath as the config file if provided
func GetConfigPaths(customPath string) (ConfigPaths, error) {
	if customPath == "" {
		return DetectConfigPaths()
	}

	absPath, err := filepath.Abs(customPath)
	if err != nil {
		return ConfigPaths{}, fmt.Errorf("failed to resolve config path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return ConfigPaths{}, fmt.Errorf("config path does not exist: %w", err)
	}
	if info.IsDir() {
		return ConfigPaths{
			ConfigDir:  absPath,
			ConfigFile: filepath.Join(absPath, configFileName),
			EnvFile:    filepath.Join(absPath, envFileName),
		}, nil
	}

	return ConfigPaths{
		ConfigDir:  filepath.Dir(absPath),
		ConfigFile: absPath,
		EnvFile:    filepath.Join(filepath.Dir(absPath), envFileName),
	}, nil
}

// ConfigFileExists checks if the configuration file exists
func (cp ConfigPaths) ConfigFileExists() bool {
	_, err := os.Stat(cp.ConfigFile)
	return err == nil
}
