// Package api defines the JSON wire types shared by the HTTP server and client.
package api

import (
	"time"

	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/models"
)

// CreatorIDHeader carries the creator identity on every request.
const CreatorIDHeader = "X-Creator-ID"

// DownloadCountHeader carries the updated counter on a download response.
const DownloadCountHeader = "X-Download-Count"

type CreateSessionRequest struct {
	Name         string `json:"name"`
	WhatsAppLink string `json:"whatsapp_link"`
	Duration     string `json:"duration,omitempty"`
}

type AddContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the session view. Contacts are only listed for the creator,
// everyone else sees the count.
type Session struct {
	SessionID      string          `json:"session_id"`
	Name           string          `json:"name"`
	WhatsAppLink   string          `json:"whatsapp_link"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	GraceEndsAt    time.Time       `json:"grace_ends_at"`
	FileIDNum      int             `json:"file_id_num"`
	DownloadCount  int             `json:"download_count"`
	Phase          lifecycle.Phase `json:"phase"`
	TimeRemaining  string          `json:"time_remaining"`
	GraceRemaining string          `json:"grace_remaining"`
	IsCreator      bool            `json:"is_creator"`
	ContactCount   int             `json:"contact_count"`
	Contacts       []Contact       `json:"contacts,omitempty"`
}

// SessionStatus is the coarse state shown in a creator's list.
type SessionStatus string

const (
	StatusActive SessionStatus = "Active"
	StatusEnded  SessionStatus = "Ended"
)

type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	Name         string        `json:"name"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	ContactCount int           `json:"contact_count"`
	Status       SessionStatus `json:"status"`
}

type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
}

type Duration struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Seconds int64  `json:"seconds"`
}

type DurationList struct {
	Default   string     `json:"default"`
	Durations []Duration `json:"durations"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewSession builds the view of s at now for the given requester.
func NewSession(s *models.Session, now time.Time, requesterID string) Session {
	tick := lifecycle.Snapshot(now, s.ExpiresAt)

	view := Session{
		SessionID:      s.SessionID,
		Name:           s.Name,
		WhatsAppLink:   s.WhatsAppLink,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		GraceEndsAt:    lifecycle.GraceEnds(s.ExpiresAt),
		FileIDNum:      s.FileIDNum,
		DownloadCount:  s.DownloadCount,
		Phase:          tick.Phase,
		TimeRemaining:  tick.Remaining,
		GraceRemaining: tick.GraceRemaining,
		IsCreator:      requesterID != "" && requesterID == s.CreatorID,
		ContactCount:   len(s.Contacts),
	}

	if view.IsCreator {
		view.Contacts = make([]Contact, 0, len(s.Contacts))
		for _, c := range s.Contacts {
			view.Contacts = append(view.Contacts, NewContact(&c))
		}
	}

	return view
}

func NewContact(c *models.Contact) Contact {
	return Contact{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

// NewSessionSummary marks a session Active until it expires and Ended after.
func NewSessionSummary(s *models.SessionSummary, now time.Time) SessionSummary {
	status := StatusEnded
	if lifecycle.Classify(now, s.ExpiresAt) == lifecycle.Active {
		status = StatusActive
	}

	return SessionSummary{
		SessionID:    s.SessionID,
		Name:         s.Name,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		ContactCount: s.ContactCount,
		Status:       status,
	}
}

func NewDurationList() DurationList {
	list := DurationList{
		Default:   models.DefaultDuration,
		Durations: make([]Duration, 0, len(models.Durations)),
	}
	for _, d := range models.Durations {
		list.Durations = append(list.Durations, Duration{
			Value:   d.Value,
			Label:   d.Label,
			Seconds: int64(d.Duration.Seconds()),
		})
	}
	return list
}
