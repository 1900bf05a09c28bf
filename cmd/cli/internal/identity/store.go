package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const identityFile = "identity.json"

// Sentinel errors
var (
	// ErrIdentityNotFound is returned when no identity has been generated yet.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidIdentity is returned when the identity file holds no valid creator id.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Identity is the locally persisted creator identity sent as X-Creator-ID.
type Identity struct {
	Version   int       `json:"version"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages the identity file on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a new identity store.
// If baseDir is empty, uses ~/.contactgain/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".contactgain")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create identity directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("identity store initialized")

	return &Store{baseDir: baseDir}, nil
}

// CacheDir is where the API client keeps cached responses.
func (s *Store) CacheDir() string {
	return filepath.Join(s.baseDir, "cache")
}

// Load reads the stored identity.
func (s *Store) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	parsed, err := uuid.Parse(id.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	id.CreatorID = parsed.String()

	return &id, nil
}

// LoadOrCreate returns the stored identity, generating and saving one on first use.
func (s *Store) LoadOrCreate() (*Identity, error) {
	id, err := s.Load()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	id = &Identity{
		Version:   1,
		CreatorID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.save(id); err != nil {
		return nil, err
	}

	log.Info().Str("creatorID", id.CreatorID).Msg("generated new creator identity")

	return id, nil
}

func (s *Store) path() string {
	return filepath.Join(s.baseDir, identityFile)
}

// save writes the identity file atomically.
func (s *Store) save(id *Identity) error {
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	// Write to temp file first
	tempPath := s.path() + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save identity: %w", err)
	}

	return nil
}
