package payloadstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilePayloadStore is a directory-backed store for environments without a
// writable single-file database: one file per token under Root.
type FilePayloadStore struct {
	Root string
}

// NewFilePayloadStore ensures root exists and returns a store rooted there.
func NewFilePayloadStore(root string) (*FilePayloadStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("payloadstore: create root %s: %w", root, err)
	}
	return &FilePayloadStore{Root: root}, nil
}

func (s *FilePayloadStore) Put(_ context.Context, data []byte) (string, error) {
	token := uuid.New().String()
	path := s.path(token)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("payloadstore: write %s: %w", path, err)
	}
	return token, nil
}

func (s *FilePayloadStore) Get(_ context.Context, token string) ([]byte, error) {
	path := s.path(token)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("payloadstore: read %s: %w", path, err)
	}
	return data, nil
}

func (s *FilePayloadStore) Close() error { return nil }

func (s *FilePayloadStore) path(token string) string {
	return filepath.Join(s.Root, token+".blob")
}
