package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/models"
	"github.com/wolfeidau/contactgain/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore using PostgreSQL.
// Contact uniqueness is enforced by unique indexes, see migrations/1_initial_schema.sql.
type SessionStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewSessionStore creates a new PostgreSQL-backed session store.
// The pool is owned by the caller.
func NewSessionStore(pool *pgxpool.Pool, cfg *SessionStoreConfig) (*SessionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if cfg == nil {
		cfg = &SessionStoreConfig{}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session store config: %w", err)
	}

	return &SessionStore{
		pool:         pool,
		queryTimeout: time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
	}, nil
}

// NextFileID allocates the next download file number from session_file_id_seq.
func (s *SessionStore) NextFileID(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var id int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('session_file_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate file id: %w", mapPostgresError(err))
	}

	return int(id), nil
}

// Create inserts a new session row. Contacts on the model are ignored.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO sessions (
			id, session_id, name, creator_id, whatsapp_link,
			created_at, expires_at, file_id_num, download_count, is_hidden
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.SessionID,
		session.Name,
		session.CreatorID,
		session.WhatsAppLink,
		session.CreatedAt,
		session.ExpiresAt,
		session.FileIDNum,
		session.DownloadCount,
		session.IsHidden,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrSessionExists) {
			return mapped
		}
		return fmt.Errorf("failed to create session: %w", mapped)
	}

	log.Debug().
		Str("session_id", session.SessionID).
		Str("creator_id", session.CreatorID).
		Time("expires_at", session.ExpiresAt).
		Msg("Created session")

	return nil
}

// Get retrieves a visible session and its contacts in insertion order.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		SELECT
			id, session_id, name, creator_id, whatsapp_link,
			created_at, expires_at, file_id_num, download_count, is_hidden
		FROM sessions
		WHERE session_id = $1 AND NOT is_hidden
	`

	var session models.Session
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.SessionID,
		&session.Name,
		&session.CreatorID,
		&session.WhatsAppLink,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.FileIDNum,
		&session.DownloadCount,
		&session.IsHidden,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", mapPostgresError(err))
	}

	contacts, err := s.listContacts(ctx, session.ID.String())
	if err != nil {
		return nil, err
	}
	session.Contacts = contacts

	return &session, nil
}

func (s *SessionStore) listContacts(ctx context.Context, sessionTableID string) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, created_at
		FROM contacts
		WHERE session_table_id = $1
		ORDER BY seq
	`, sessionTableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

// ListByCreator returns the creator's visible sessions, newest first, with contact counts.
func (s *SessionStore) ListByCreator(ctx context.Context, creatorID string) ([]*models.SessionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		SELECT s.session_id, s.name, s.created_at, s.expires_at, COUNT(c.id)
		FROM sessions s
		LEFT JOIN contacts c ON c.session_table_id = s.id
		WHERE s.creator_id = $1 AND NOT s.is_hidden
		GROUP BY s.id
		ORDER BY s.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var summaries []*models.SessionSummary
	for rows.Next() {
		var (
			summary models.SessionSummary
			count   int64
		)
		if err := rows.Scan(
			&summary.SessionID,
			&summary.Name,
			&summary.CreatedAt,
			&summary.ExpiresAt,
			&count,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		summary.ContactCount = int(count)
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return summaries, nil
}

// AddContact inserts a contact into a visible session.
// Unique index violations surface as store.ErrDuplicateName or store.ErrDuplicatePhone.
func (s *SessionStore) AddContact(ctx context.Context, sessionID string, contact *models.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		INSERT INTO contacts (id, session_table_id, name, phone, created_at)
		SELECT $2, s.id, $3, $4, $5
		FROM sessions s
		WHERE s.session_id = $1 AND NOT s.is_hidden
	`

	result, err := s.pool.Exec(ctx, query,
		sessionID,
		contact.ID,
		contact.Name,
		contact.Phone,
		contact.CreatedAt,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrDuplicatePhone) {
			// the index reported first is up to the planner; a taken name wins
			taken, nameErr := s.nameTaken(ctx, sessionID, contact.Name)
			if nameErr != nil {
				return fmt.Errorf("failed to add contact: %w", nameErr)
			}
			if taken {
				return store.ErrDuplicateName
			}
			return mapped
		}
		if errors.Is(mapped, store.ErrDuplicateName) {
			return mapped
		}
		return fmt.Errorf("failed to add contact: %w", mapped)
	}

	if result.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("contact_id", contact.ID.String()).
		Msg("Added contact")

	return nil
}

// nameTaken reports whether a contact in the session already uses name, ignoring case.
func (s *SessionStore) nameTaken(ctx context.Context, sessionID, name string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM contacts c
			JOIN sessions s ON s.id = c.session_table_id
			WHERE s.session_id = $1 AND LOWER(c.name) = LOWER($2)
		)
	`

	var taken bool
	if err := s.pool.QueryRow(ctx, query, sessionID, name).Scan(&taken); err != nil {
		return false, mapPostgresError(err)
	}
	return taken, nil
}

// IncrementDownloadCount bumps the counter in a single statement and returns the new value.
func (s *SessionStore) IncrementDownloadCount(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		UPDATE sessions
		SET download_count = download_count + 1
		WHERE session_id = $1 AND NOT is_hidden
		RETURNING download_count
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrSessionNotFound
		}
		return 0, fmt.Errorf("failed to increment download count: %w", mapPostgresError(err))
	}

	return count, nil
}

// Hide soft deletes a session owned by creatorID.
func (s *SessionStore) Hide(ctx context.Context, sessionID, creatorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		UPDATE sessions
		SET is_hidden = true
		WHERE session_id = $1 AND creator_id = $2 AND NOT is_hidden
	`

	result, err := s.pool.Exec(ctx, query, sessionID, creatorID)
	if err != nil {
		return fmt.Errorf("failed to hide session: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("creator_id", creatorID).
		Msg("Hid session")

	return nil
}

// PurgeContacts deletes contacts of sessions that expired before expiredBefore (cleanup job).
func (s *SessionStore) PurgeContacts(ctx context.Context, expiredBefore time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
		DELETE FROM contacts c
		USING sessions s
		WHERE c.session_table_id = s.id AND s.expires_at < $1
	`

	result, err := s.pool.Exec(ctx, query, expiredBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to purge contacts: %w", mapPostgresError(err))
	}

	count := int(result.RowsAffected())

	if count > 0 {
		log.Info().
			Int("count", count).
			Time("expired_before", expiredBefore).
			Msg("Purged expired contacts")
	}

	return count, nil
}
