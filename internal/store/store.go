package store

import (
	"context"
	"errors"
	"time"

	"github.com/wolfeidau/contactgain/internal/models"
)

// Sentinel errors for session store operations
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrDuplicateName   = errors.New("contact name already exists in session")
	ErrDuplicatePhone  = errors.New("contact phone already exists in session")
)

// SessionStore defines the interface for session and contact storage.
// Implementations enforce contact uniqueness per session: names compare
// case-insensitively, phones compare exactly.
type SessionStore interface {
	// NextFileID allocates the next download file number.
	NextFileID(ctx context.Context) (int, error)

	// Create stores a new session with no contacts.
	// Returns ErrSessionExists if the session id is taken.
	Create(ctx context.Context, session *models.Session) error

	// Get returns a session with its contacts in insertion order.
	// Hidden sessions are reported as ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// ListByCreator returns the creator's visible sessions, newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]*models.SessionSummary, error)

	// AddContact appends a contact to a session.
	// Returns ErrDuplicateName, ErrDuplicatePhone or ErrSessionNotFound.
	AddContact(ctx context.Context, sessionID string, contact *models.Contact) error

	// IncrementDownloadCount atomically bumps the download counter and returns the new value.
	IncrementDownloadCount(ctx context.Context, sessionID string) (int, error)

	// Hide soft deletes a session. Only the creator may hide it; a mismatched
	// creator is indistinguishable from a missing session (ErrSessionNotFound).
	Hide(ctx context.Context, sessionID, creatorID string) error

	// PurgeContacts removes the contacts of every session that expired before
	// expiredBefore and returns the number of contacts removed.
	PurgeContacts(ctx context.Context, expiredBefore time.Time) (int, error)
}
