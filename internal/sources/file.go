package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stacklok/csw-harvester/internal/config"
)

// fileSourceHandler handles spreadsheets stored on the local filesystem
type fileSourceHandler struct{}

// NewFileSourceHandler creates a new file source handler
func NewFileSourceHandler() SourceHandler {
	return &fileSourceHandler{}
}

// Validate checks that the file exists and has the spreadsheet extension
func (*fileSourceHandler) Validate(src config.SourceConfig) error {
	if src.Path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	return config.CheckFile(src.Path, config.SpreadsheetExtension)
}

// Fetch reads the spreadsheet from disk
func (h *fileSourceHandler) Fetch(ctx context.Context, src config.SourceConfig) (*Document, error) {
	if err := h.Validate(src); err != nil {
		return nil, err
	}

	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathNotFoundError{Path: src.Path}
		}
		return nil, fmt.Errorf("failed to read file %s: %w", src.Path, err)
	}

	doc := NewDocument(src.Path, data)
	slog.DebugContext(ctx, "Read source spreadsheet", "path", src.Path, "bytes", len(data), "hash", doc.Hash)
	return doc, nil
}
