package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/inkblock"
)

// GetConfigDir returns the inkblock config directory path (~/.config/inkblock/)
// and creates it if it doesn't exist
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, AppConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ResolveFilePath resolves a file path with the following priority:
// 1. Local working directory (e.g., ./inkblock.db)
// 2. User config directory (e.g., ~/.config/inkblock/inkblock.db)
// 3. Returns the user config directory path if neither exists (for creation)
func ResolveFilePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}

	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return filename
	}

	// Either it exists in the user dir or that is where it gets created
	return filepath.Join(configDir, filename)
}

// ResolveFilePathWithSubdir resolves a file path in a subdirectory with the
// same priority as ResolveFilePath, creating the user subdirectory on demand.
func ResolveFilePathWithSubdir(subdir, filename string) string {
	localPath := filepath.Join(subdir, filename)

	if _, err := os.Stat(localPath); err == nil {
		return localPath
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return localPath
	}

	userSubdir := filepath.Join(configDir, subdir)
	userPath := filepath.Join(userSubdir, filename)
	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}

	if err := os.MkdirAll(userSubdir, 0700); err != nil {
		return localPath
	}
	return userPath
}
