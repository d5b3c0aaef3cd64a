package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
	"github.com/Luis-avalos1/TaskFlow/pkg/crypto"
)

// Session is the persisted part of AuthState.
type Session struct {
	User   *domain.User     `json:"user"`
	Tokens client.TokenPair `json:"tokens"`
}

// SessionPersister saves and restores a session between runs.
type SessionPersister interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileSession stores the session as JSON on disk. With a non-empty secret
// the file is sealed with XChaCha20-Poly1305.
type FileSession struct {
	path   string
	secret string
}

// NewFileSession returns a persister writing to path.
func NewFileSession(path, secret string) *FileSession {
	return &FileSession{path: path, secret: secret}
}

// Load returns an empty session when the file does not exist.
func (f *FileSession) Load() (Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if f.secret != "" {
		if data, err = crypto.Open(f.secret, data); err != nil {
			return Session{}, fmt.Errorf("open session: %w", err)
		}
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (f *FileSession) Save(session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if f.secret != "" {
		if data, err = crypto.Seal(f.secret, data); err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (f *FileSession) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// MemorySession keeps the session in process memory.
type MemorySession struct {
	session Session
}

func (m *MemorySession) Load() (Session, error) { return m.session, nil }

func (m *MemorySession) Save(s Session) error {
	m.session = s
	return nil
}

func (m *MemorySession) Clear() error {
	m.session = Session{}
	return nil
}
