package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelsos/coinfolio/internal/logger"
)

// GetDefaultBackupDir returns the default backup directory
func GetDefaultBackupDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, "backups"), nil
}

// CreateBackup zips the persisted state found in dataDir into backupDir
func CreateBackup(dataDir, backupDir string) (string, error) {
	if backupDir == "" {
		var err error
		backupDir, err = GetDefaultBackupDir()
		if err != nil {
			return "", fmt.Errorf("failed to get default backup directory: %w", err)
		}
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupFile := filepath.Join(backupDir, fmt.Sprintf("coinfolio_backup_%s.zip", timestamp))

	zipFile, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	err = filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		return AddToZip(path, info, err, dataDir, zipWriter)
	})
	if err != nil {
		zipWriter.Close()
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	logger.Info("Backup created successfully: %s", backupFile)
	return backupFile, nil
}

// AddToZip adds one walked entry of dataDir to the archive
func AddToZip(path string, info os.FileInfo, err error, dataDir string, zipWriter *zip.Writer) error {
	if err != nil {
		return err
	}

	if path == dataDir || info.IsDir() {
		return nil
	}

	relPath, err := filepath.Rel(dataDir, path)
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}

	if !ShouldIncludeInBackup(relPath) {
		logger.Debug("Skipping file: %s", relPath)
		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create file header: %w", err)
	}

	header.Name = filepath.ToSlash(relPath)
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create file in zip: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	logger.Debug("Added file to backup: %s", relPath)
	return nil
}

// ShouldIncludeInBackup keeps top-level state files and skips temp files left by interrupted writes
func ShouldIncludeInBackup(relPath string) bool {
	if strings.ContainsRune(relPath, filepath.Separator) {
		return false
	}
	return strings.HasSuffix(relPath, ".json") && !strings.HasSuffix(relPath, ".tmp")
}
