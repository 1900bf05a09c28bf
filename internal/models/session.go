package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
)

// Session is a time-boxed contact collection campaign.
// ExpiresAt is fixed at creation; IsHidden is a soft delete.
type Session struct {
	ID        uuid.UUID // UUIDv7 row id
	SessionID string    // short opaque id shared in join links

	Name         string
	CreatorID    string // client generated UUID, scopes "my sessions" and hide
	WhatsAppLink string // where participants are sent after submitting

	CreatedAt time.Time
	ExpiresAt time.Time

	FileIDNum     int // feeds the download filename, defaults to 1
	DownloadCount int
	IsHidden      bool

	Contacts []Contact
}

// Phase returns the lifecycle phase of the session at now.
func (s *Session) Phase(now time.Time) lifecycle.Phase {
	return lifecycle.Classify(now, s.ExpiresAt)
}

// Clone returns a deep copy so stores can hand out sessions without sharing the contact slice.
func (s *Session) Clone() *Session {
	clone := *s
	if s.Contacts != nil {
		clone.Contacts = make([]Contact, len(s.Contacts))
		copy(clone.Contacts, s.Contacts)
	}
	return &clone
}

// SessionSummary is the row shown in a creator's session list.
type SessionSummary struct {
	SessionID    string
	Name         string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ContactCount int
}
