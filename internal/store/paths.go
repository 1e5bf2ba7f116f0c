package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the dbnn data directory.
const DirName = ".dbnn"

// GlobalPath returns the path to the global .dbnn directory.
// On Unix: ~/.dbnn
// On Windows: %USERPROFILE%\.dbnn
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPath returns the path to the .dbnn directory under root.
func LocalPath(root string) string {
	return filepath.Join(root, DirName)
}
