package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PathNotFoundError is returned when a configured file does not exist
type PathNotFoundError struct {
	Path string
}

// Error returns the error message
func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// UnexpectedFileExtensionError is returned when a configured file has the wrong extension
type UnexpectedFileExtensionError struct {
	Path string
	Want string
}

// Error returns the error message
func (e *UnexpectedFileExtensionError) Error() string {
	return fmt.Sprintf("unexpected file extension for %s: want %s", e.Path, e.Want)
}

// CheckFile verifies that path names an existing regular file with extension ext (case-insensitive)
func CheckFile(path, ext string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &PathNotFoundError{Path: path}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &PathNotFoundError{Path: path}
	}
	if !strings.EqualFold(filepath.Ext(path), ext) {
		return &UnexpectedFileExtensionError{Path: path, Want: ext}
	}
	return nil
}
