package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
)

// KV is the persisted key-value capability.
type KV interface {
	// Get returns the value of key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// GetDataHome returns the per-user data directory of the platform
func GetDataHome() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return dataHome, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return appData, nil
		}
		return filepath.Join(homeDir, "AppData", "Local"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support"), nil
	default:
		return filepath.Join(homeDir, ".local", "share"), nil
	}
}

// GetAppDataDir returns the application data directory, creating it if needed
func GetAppDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataHome, err := GetDataHome()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(dataHome, "coinfolio")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create app data directory: %w", err)
	}

	return dataDir, nil
}

// FileStore keeps one JSON file per key in a directory
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	dir, err := GetAppDataDir(dir)
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get reads the file of key
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return data, true, nil
}

// Set writes the file of key atomically
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}
