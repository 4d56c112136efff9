// Package common provides shared constants, types, and utilities
// used across the VPN connector.
package common

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the path to the application configuration directory.
// It creates the directory if it doesn't exist.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", WrapError(err, "failed to get home directory")
	}

	configDir := filepath.Join(homeDir, ".config", ConfigDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", WrapError(err, "failed to create config directory")
	}

	return configDir, nil
}

// GetStateDir returns the path to the per-user state directory used for
// runtime records such as the persisted connection file. It creates the
// directory with restrictive permissions if absent.
func GetStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		stateDir := filepath.Join(dir, StateDirName)
		if err := os.MkdirAll(stateDir, 0700); err != nil {
			return "", WrapError(err, "failed to create state directory")
		}
		return stateDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", WrapError(err, "failed to get home directory")
	}

	stateDir := filepath.Join(homeDir, ".local", "state", StateDirName)
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return "", WrapError(err, "failed to create state directory")
	}

	return stateDir, nil
}
