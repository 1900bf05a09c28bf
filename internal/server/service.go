package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/models"
	"github.com/wolfeidau/contactgain/internal/store"
	"github.com/wolfeidau/contactgain/internal/telemetry"
	"github.com/wolfeidau/contactgain/internal/vcf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// session ids are random, a collision is retried a few times before giving up
const createAttempts = 3

// CreateSessionInput carries the fields of the create form.
type CreateSessionInput struct {
	Name         string
	WhatsAppLink string
	Duration     string // preset value, see models.Durations
}

// Download is a rendered VCF file ready to be served.
type Download struct {
	Filename      string
	ContentType   string
	Body          []byte
	ContactCount  int
	DownloadCount int
}

// SessionService implements the session operations on top of a store.SessionStore.
// Lifecycle gates are evaluated against the injected clock.
type SessionService struct {
	store   store.SessionStore
	clock   lifecycle.Clock
	metrics *telemetry.Metrics
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithClock overrides the clock, used by tests to pin lifecycle phases.
func WithClock(clock lifecycle.Clock) Option {
	return func(s *SessionService) {
		s.clock = clock
	}
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessionStore store.SessionStore, opts ...Option) *SessionService {
	s := &SessionService{
		store:   sessionStore,
		clock:   lifecycle.SystemClock{},
		metrics: telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock time.
func (s *SessionService) Now() time.Time {
	return s.clock.Now()
}

// CreateSession validates the form and stores a new session owned by creatorID.
func (s *SessionService) CreateSession(ctx context.Context, creatorID string, in CreateSessionInput) (*models.Session, error) {
	if creatorID == "" {
		return nil, validationError("creator identity is required")
	}

	name, err := validateSessionName(in.Name)
	if err != nil {
		return nil, err
	}

	link, err := validateWhatsAppLink(in.WhatsAppLink)
	if err != nil {
		return nil, err
	}

	duration, err := models.LookupDuration(in.Duration)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	fileID, err := s.store.NextFileID(ctx)
	if err != nil {
		return nil, s.storeError(ctx, "allocate file id", err)
	}

	rowID, err := uuid.NewV7()
	if err != nil {
		return nil, newError(CodeRemoteFailure, "failed to generate id", err)
	}

	now := s.clock.Now().UTC()
	session := &models.Session{
		ID:           rowID,
		Name:         name,
		CreatorID:    creatorID,
		WhatsAppLink: link,
		CreatedAt:    now,
		ExpiresAt:    now.Add(duration.Duration),
		FileIDNum:    fileID,
	}

	for attempt := 1; ; attempt++ {
		session.SessionID, err = store.NewSessionID()
		if err != nil {
			return nil, newError(CodeRemoteFailure, "failed to generate session id", err)
		}

		err = s.store.Create(ctx, session)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrSessionExists) || attempt == createAttempts {
			return nil, s.storeError(ctx, "create session", err)
		}

		log.Ctx(ctx).Warn().Str("session_id", session.SessionID).Msg("Session id collision, retrying")
	}

	s.metrics.SessionsCreatedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("duration", duration.Value)))

	log.Ctx(ctx).Info().
		Str("session_id", session.SessionID).
		Str("creator_id", creatorID).
		Time("expires_at", session.ExpiresAt).
		Int("file_id_num", session.FileIDNum).
		Msg("Session created")

	return session, nil
}

// GetSession returns a visible session with its contacts.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, s.storeError(ctx, "get session", err)
	}
	return session, nil
}

// ListMySessions returns the creator's visible sessions, newest first.
func (s *SessionService) ListMySessions(ctx context.Context, creatorID string) ([]*models.SessionSummary, error) {
	if creatorID == "" {
		return nil, validationError("creator identity is required")
	}

	summaries, err := s.store.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, s.storeError(ctx, "list sessions", err)
	}
	return summaries, nil
}

// AddContact submits a participant entry. Only Active sessions accept contacts.
func (s *SessionService) AddContact(ctx context.Context, sessionID, name, phone string) (*models.Contact, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, s.storeError(ctx, "get session", err)
	}

	if session.Phase(s.clock.Now()) != lifecycle.Active {
		s.rejectContact(ctx, CodeSessionExpired)
		return nil, newError(CodeSessionExpired, "this session has ended and no longer accepts contacts", nil)
	}

	name, phone, err = validateContact(name, phone)
	if err != nil {
		s.rejectContact(ctx, CodeValidation)
		return nil, err
	}

	contactID, err := uuid.NewV7()
	if err != nil {
		return nil, newError(CodeRemoteFailure, "failed to generate id", err)
	}

	contact := &models.Contact{
		ID:        contactID,
		Name:      name,
		Phone:     phone,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.store.AddContact(ctx, sessionID, contact); err != nil {
		svcErr := s.storeError(ctx, "add contact", err)
		s.rejectContact(ctx, svcErr.Code)
		return nil, svcErr
	}

	s.metrics.ContactsAddedTotal.Add(ctx, 1)

	log.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Str("contact_id", contact.ID.String()).
		Msg("Contact added")

	return contact, nil
}

// Download renders the session contacts as a VCF file and bumps the download counter.
//
// The creator may download any time before the grace period ends; everyone
// else only once the session has expired.
func (s *SessionService) Download(ctx context.Context, sessionID, requesterID string) (*Download, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, s.storeError(ctx, "get session", err)
	}

	phase := session.Phase(s.clock.Now())

	if phase == lifecycle.PermanentlyExpired {
		s.denyDownload(ctx, CodeSessionExpired)
		return nil, newError(CodeSessionExpired, "the download window has closed", nil)
	}

	isCreator := requesterID != "" && requesterID == session.CreatorID
	if !isCreator && phase == lifecycle.Active {
		s.denyDownload(ctx, CodeSessionActive)
		return nil, newError(CodeSessionActive, "the file can be downloaded once the session has ended", nil)
	}

	if len(session.Contacts) == 0 {
		s.denyDownload(ctx, CodeNoContacts)
		return nil, newError(CodeNoContacts, "there are no contacts to download yet", nil)
	}

	count, err := s.store.IncrementDownloadCount(ctx, sessionID)
	if err != nil {
		return nil, s.storeError(ctx, "increment download count", err)
	}

	s.metrics.DownloadsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("creator", isCreator)))
	s.metrics.DownloadContactsCount.Record(ctx, int64(len(session.Contacts)))

	log.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("phase", phase.String()).
		Bool("creator", isCreator).
		Int("contacts", len(session.Contacts)).
		Int("download_count", count).
		Msg("Session downloaded")

	return &Download{
		Filename:      vcf.Filename(session.FileIDNum),
		ContentType:   vcf.ContentType,
		Body:          []byte(vcf.Encode(session.Contacts)),
		ContactCount:  len(session.Contacts),
		DownloadCount: count,
	}, nil
}

// HideSession soft deletes a session owned by creatorID.
func (s *SessionService) HideSession(ctx context.Context, sessionID, creatorID string) error {
	if creatorID == "" {
		return validationError("creator identity is required")
	}

	if err := s.store.Hide(ctx, sessionID, creatorID); err != nil {
		return s.storeError(ctx, "hide session", err)
	}

	s.metrics.SessionsHiddenTotal.Add(ctx, 1)

	log.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("creator_id", creatorID).
		Msg("Session hidden")

	return nil
}

// storeError converts store sentinels into service errors. Anything unknown
// is a remote failure, logged here so callers only see a generic message.
func (s *SessionService) storeError(ctx context.Context, op string, err error) *Error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return newError(CodeNotFound, "session not found", err)
	case errors.Is(err, store.ErrDuplicateName):
		return newError(CodeDuplicateName, "this name is already registered in this session", err)
	case errors.Is(err, store.ErrDuplicatePhone):
		return newError(CodeDuplicatePhone, "this phone number is already registered in this session", err)
	}

	s.metrics.StoreErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("Session store failure")

	return newError(CodeRemoteFailure, "something went wrong, please try again", fmt.Errorf("failed to %s: %w", op, err))
}

func (s *SessionService) rejectContact(ctx context.Context, code ErrorCode) {
	s.metrics.ContactsRejectedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(code))))
}

func (s *SessionService) denyDownload(ctx context.Context, code ErrorCode) {
	s.metrics.DownloadsDeniedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(code))))
}
