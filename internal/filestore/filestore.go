// Package filestore retains uploaded bank exports on disk so ingested data
// can always be traced back to its source file.
package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store handles local file storage
type Store struct {
	basePath string
}

// New creates a new file store with the given base path
func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create filestore directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Save stores an uploaded export and returns the stored filename. A random
// prefix avoids collisions while keeping the original name recognizable.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	prefix, err := generateID()
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	storedName := prefix + "_" + sanitize(filepath.Base(filename))
	fullPath := filepath.Join(s.basePath, storedName)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(fullPath) // Clean up on error
		return "", fmt.Errorf("write file: %w", err)
	}

	return storedName, nil
}

// Delete removes the file at the given path
func (s *Store) Delete(filename string) error {
	if filename == "" {
		return nil
	}
	fullPath := filepath.Join(s.basePath, filename)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FullPath returns the full filesystem path for a stored filename
func (s *Store) FullPath(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// sanitize strips path separators and whitespace from an uploaded filename.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ' ':
			return '_'
		default:
			return r
		}
	}, name)
	if name == "" {
		name = "upload"
	}
	return name
}

// generateID creates a random 8-character hex string
func generateID() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
