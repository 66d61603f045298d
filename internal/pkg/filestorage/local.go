package filestorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LocalStorage writes objects below a directory on the local filesystem.
type LocalStorage struct {
	basePath string
	logger   zerolog.Logger
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string, logger zerolog.Logger) (*LocalStorage, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "backups"
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath, logger: logger}, nil
}

func (ls *LocalStorage) Driver() Driver { return DriverLocal }

// Put writes data to <basePath>/<key>. The file is written under a
// temporary name and renamed into place so readers never see a partial object.
func (ls *LocalStorage) Put(ctx context.Context, key string, data []byte, _ string) (*ObjectInfo, error) {
	dstPath, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(dstPath); err == nil {
		return nil, fmt.Errorf("object %s already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".tmp-*")
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write object content")
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, dstPath); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	abs, err := filepath.Abs(dstPath)
	if err != nil {
		abs = dstPath
	}
	ls.logger.Info().Str("key", key).Str("path", abs).Int("size", len(data)).Msg("Object saved successfully")
	return &ObjectInfo{
		Key:       key,
		Location:  abs,
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (ls *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(ls.basePath, clean), nil
}
