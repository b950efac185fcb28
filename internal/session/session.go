// Package session manages per-conversion scratch directories keyed by
// opaque session identifiers. Each conversion gets its own directory so
// concurrent requests never share filesystem state.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Static errors for session handling.
var (
	// ErrSessionNotFound is returned when a session ID is unknown or its
	// directory has been reclaimed.
	ErrSessionNotFound = errors.New("session not found")
)

// ArchiveFileName is the name of the finished archive inside a session
// directory, and the download filename presented to clients.
const ArchiveFileName = "bootanimation.zip"

// Session is one conversion's private scratch space.
type Session struct {
	// ID is the opaque identifier used in download URLs.
	ID string
	// Dir is the session's scratch directory.
	Dir string
}

// InputPath returns where the uploaded source video is stored.
func (s Session) InputPath() string {
	return filepath.Join(s.Dir, "input.mp4")
}

// WorkDir returns the frame-extraction scratch directory for the build.
func (s Session) WorkDir() string {
	return filepath.Join(s.Dir, "frames")
}

// ArchivePath returns where the finished archive is written.
func (s Session) ArchivePath() string {
	return filepath.Join(s.Dir, ArchiveFileName)
}

// Manager allocates session directories under a base directory and keeps
// an in-memory index for download lookups. The map is guarded by an
// RWMutex; directory contents live until the process's retention policy
// (external) reclaims them.
type Manager struct {
	baseDir  string
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewManager creates a Manager rooted at baseDir.
// If baseDir is empty, a "bootanim" directory under os.TempDir() is used.
// The base directory is created if it doesn't exist.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "bootanim")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create session base directory: %w", err)
	}

	return &Manager{
		baseDir:  baseDir,
		sessions: make(map[string]Session),
	}, nil
}

// BaseDir returns the directory sessions are allocated under.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Create allocates a new session with a fresh directory.
func (m *Manager) Create() (Session, error) {
	id := generateID()
	dir := filepath.Join(m.baseDir, "bootanim_"+id)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return Session{}, fmt.Errorf("create session directory: %w", err)
	}

	s := Session{ID: id, Dir: dir}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s, nil
}

// Lookup resolves a session ID to its session.
// Returns ErrSessionNotFound when the ID is unknown or the directory is gone.
func (m *Manager) Lookup(id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if _, err := os.Stat(s.Dir); err != nil {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// SaveInput writes the uploaded source video into the session directory
// and returns its path.
func (m *Manager) SaveInput(s Session, data io.Reader) (string, error) {
	path := s.InputPath()
	f, err := os.Create(path) // #nosec G304 - path is derived from the session dir
	if err != nil {
		return "", fmt.Errorf("create input file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write input file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close input file: %w", err)
	}

	return path, nil
}

// Remove deletes a session and its directory.
// Returns ErrSessionNotFound if the session does not exist.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	return nil
}

// generateID creates a new unique session ID.
// Format: <timestamp>-<random>
// Example: 1701432000-a1b2c3d4
func generateID() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("%d", timestamp)
	}
	return fmt.Sprintf("%d-%s", timestamp, hex.EncodeToString(random))
}
