package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// MemoryPersistence keeps the session in memory. The zero value is empty.
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// NewMemoryPersistence returns storage pre-filled with data, as if a session had been saved.
func NewMemoryPersistence(data []byte) *MemoryPersistence {
	return &MemoryPersistence{data: append([]byte(nil), data...), set: true}
}

func (m *MemoryPersistence) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrNoSession
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryPersistence) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.set = true
	return nil
}

func (m *MemoryPersistence) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.set = false
	return nil
}

// FilePersistence stores the session as a JSON file, typically <config dir>/docvault/documentVaultUser.json.
type FilePersistence struct {
	fs   afero.Fs
	path string
}

func NewFilePersistence(fs afero.Fs, path string) *FilePersistence {
	return &FilePersistence{fs: fs, path: path}
}

func (f *FilePersistence) Path() string { return f.path }

func (f *FilePersistence) Load() ([]byte, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return data, nil
}

func (f *FilePersistence) Save(data []byte) error {
	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := afero.WriteFile(f.fs, f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (f *FilePersistence) Delete() error {
	if err := f.fs.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
