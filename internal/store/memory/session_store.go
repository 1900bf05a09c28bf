package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfeidau/contactgain/internal/models"
	"github.com/wolfeidau/contactgain/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type SessionStore struct {
	mu sync.RWMutex

	sessions   map[string]*entry // session_id -> entry
	lastFileID int
}

// entry keeps the uniqueness indexes next to the session they guard.
type entry struct {
	session *models.Session
	names   map[string]struct{} // lowercased contact names
	phones  map[string]struct{}
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entry),
	}
}

// NextFileID allocates the next download file number, starting at 1.
func (s *SessionStore) NextFileID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFileID++
	return s.lastFileID, nil
}

// Create stores a new session in memory.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return store.ErrSessionExists
	}

	// Clone to avoid external modifications
	clone := session.Clone()
	clone.Contacts = nil

	s.sessions[session.SessionID] = &entry{
		session: clone,
		names:   make(map[string]struct{}),
		phones:  make(map[string]struct{}),
	}

	return nil
}

// Get retrieves a visible session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.visible(sessionID)
	if err != nil {
		return nil, err
	}

	return e.session.Clone(), nil
}

// ListByCreator returns the creator's visible sessions, newest first.
func (s *SessionStore) ListByCreator(ctx context.Context, creatorID string) ([]*models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.SessionSummary
	for _, e := range s.sessions {
		if e.session.CreatorID != creatorID || e.session.IsHidden {
			continue
		}
		result = append(result, &models.SessionSummary{
			SessionID:    e.session.SessionID,
			Name:         e.session.Name,
			CreatedAt:    e.session.CreatedAt,
			ExpiresAt:    e.session.ExpiresAt,
			ContactCount: len(e.session.Contacts),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// AddContact appends a contact, enforcing name and phone uniqueness.
func (s *SessionStore) AddContact(ctx context.Context, sessionID string, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.visible(sessionID)
	if err != nil {
		return err
	}

	nameKey := store.NormalizeName(contact.Name)
	if _, exists := e.names[nameKey]; exists {
		return store.ErrDuplicateName
	}
	if _, exists := e.phones[contact.Phone]; exists {
		return store.ErrDuplicatePhone
	}

	e.names[nameKey] = struct{}{}
	e.phones[contact.Phone] = struct{}{}
	e.session.Contacts = append(e.session.Contacts, *contact)

	return nil
}

// IncrementDownloadCount bumps the counter and returns the new value.
func (s *SessionStore) IncrementDownloadCount(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.visible(sessionID)
	if err != nil {
		return 0, err
	}

	e.session.DownloadCount++
	return e.session.DownloadCount, nil
}

// Hide marks a session hidden when creatorID matches its creator.
func (s *SessionStore) Hide(ctx context.Context, sessionID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.visible(sessionID)
	if err != nil {
		return err
	}
	if e.session.CreatorID != creatorID {
		return store.ErrSessionNotFound
	}

	e.session.IsHidden = true
	return nil
}

// PurgeContacts drops contacts of sessions that expired before expiredBefore.
// Uniqueness indexes are cleared with them.
func (s *SessionStore) PurgeContacts(ctx context.Context, expiredBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.sessions {
		if !e.session.ExpiresAt.Before(expiredBefore) || len(e.session.Contacts) == 0 {
			continue
		}
		count += len(e.session.Contacts)
		e.session.Contacts = nil
		e.names = make(map[string]struct{})
		e.phones = make(map[string]struct{})
	}

	return count, nil
}

// visible returns the entry for a session that exists and is not hidden.
// Callers must hold the lock.
func (s *SessionStore) visible(sessionID string) (*entry, error) {
	e, exists := s.sessions[sessionID]
	if !exists || e.session.IsHidden {
		return nil, store.ErrSessionNotFound
	}
	return e, nil
}
