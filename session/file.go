package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileSlot persists the current member in a small YAML file, the CLI's
// equivalent of a browser's local storage.
type FileSlot struct {
	path string
	mu   sync.Mutex
}

type fileState struct {
	MemberID string    `yaml:"member_id"`
	SavedAt  time.Time `yaml:"saved_at"`
}

// NewFileSlot returns a slot stored at path. The file is created on first Save.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// DefaultFilePath is ~/.config/gympoints/session.yaml (or the OS equivalent).
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gympoints", "session.yaml"), nil
}

// Path returns the backing file location.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var st fileState
	if err := yaml.Unmarshal(b, &st); err != nil {
		return "", fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	return st.MemberID, nil
}

func (s *FileSlot) Save(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if memberID == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(fileState{MemberID: memberID, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	// write then rename so a crash never leaves a half-written slot
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileSlot) Clear(ctx context.Context) error {
	return s.Save(ctx, "")
}
