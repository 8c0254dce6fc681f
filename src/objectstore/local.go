package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"volley-observer/src/logger"
	"volley-observer/src/models"
)

// -----------------------------------------------------------------------------

// LocalStore keeps uploaded objects on the local filesystem under a configured
// root directory. Keys use '/' separators and become relative paths.
type LocalStore struct {
	Root   string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLocalStore(cfg *models.MConfig, log *logger.Logger) (*LocalStore, error) {
	root := cfg.Upload.Dir
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create object store root '%s': %w", root, err)
	}
	return &LocalStore{
		Root:   root,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

// Put stores data under key. The whole payload is written in one call; the
// content type is recorded in the log only (the filesystem keeps no metadata).
func (s *LocalStore) Put(key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", key, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to store object '%s': %w", key, err)
	}

	s.Logger.Info("Stored object %s (%d bytes, %s)", key, len(data), contentType)
	return nil
}

// -----------------------------------------------------------------------------

// validateKey rejects keys that would escape the root directory.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key cannot be absolute: %s", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("object key cannot contain '..': %s", key)
		}
	}
	return nil
}
