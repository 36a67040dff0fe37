package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps state blobs in one JSON file, keyed by state name.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: expandHome(path)}
}

func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	all := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return all, nil
}

func (f *FileBackend) LoadState(_ context.Context, key string) ([]byte, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	return all[key], nil
}

func (f *FileBackend) SaveState(_ context.Context, key string, value []byte) error {
	all, err := f.readAll()
	if err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("state %s is not valid JSON", key)
	}
	all[key] = json.RawMessage(value)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(f.path, data, 0o644)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
