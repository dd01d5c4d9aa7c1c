// Package status provides run status tracking and persistence for harvest runs.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StatusPersistence defines the interface for run status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the run status to persistent storage
	SaveStatus(ctx context.Context, status *RunStatus) error

	// LoadStatus loads the run status from persistent storage
	// Returns an empty RunStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context) (*RunStatus, error)
}

// fileStatusPersistence implements StatusPersistence using a single JSON file
type fileStatusPersistence struct {
	filePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
func NewFileStatusPersistence(filePath string) StatusPersistence {
	return &fileStatusPersistence{
		filePath: filePath,
	}
}

// SaveStatus saves the run status to the JSON file
func (f *fileStatusPersistence) SaveStatus(_ context.Context, status *RunStatus) error {
	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create status directory '%s': %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := f.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file '%s': %w", tempPath, err)
	}

	if err := os.Rename(tempPath, f.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file '%s': %w", f.filePath, err)
	}

	return nil
}

// LoadStatus loads the run status from the JSON file
// Returns an empty RunStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*RunStatus, error) {
	// #nosec G304 -- filePath comes from user configuration
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RunStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file '%s': %w", f.filePath, err)
	}

	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data: %w", err)
	}

	return &status, nil
}
