package main

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDataDir returns the default per-OS application data directory for
// appName, following the same XDG/AppData/Library convention as
// btcutil.AppDataDir. Reimplemented directly on the standard library
// since this module does not otherwise depend on btcsuite/btcutil.
func appDataDir(appName string) string {
	if appName == "" || appName == "." {
		return "."
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appName)
		}
	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appName)
		}
	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appName)
		}
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appName)
		}
	}
	return filepath.Join(".", appName)
}
