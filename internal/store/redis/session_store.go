package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/contactgain/internal/models"
	"github.com/wolfeidau/contactgain/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// Key layout:
//
//	session:{id}             hash of session fields
//	session:{id}:contacts    list of JSON encoded contacts, insertion order
//	session:{id}:names       set of lowercased contact names
//	session:{id}:phones      set of contact phones
//	creator:{creator}:sessions  sorted set of visible session ids scored by created_at (ms)
//	sessions:expiry          sorted set of session ids scored by expires_at (ms)
//	session:file_id          download file number counter
//
// Every key of one session carries the {id} hash tag, so each Lua script below
// touches a single cluster slot. The creator and expiry indexes live in other
// slots and are updated outside the scripts.
const (
	fileIDKey = "session:file_id"
	expiryKey = "sessions:expiry"
)

func sessionKey(id string) string  { return "session:{" + id + "}" }
func contactsKey(id string) string { return sessionKey(id) + ":contacts" }
func namesKey(id string) string    { return sessionKey(id) + ":names" }
func phonesKey(id string) string   { return sessionKey(id) + ":phones" }

func creatorKey(creatorID string) string { return "creator:{" + creatorID + "}:sessions" }

func contactKeys(id string) []string {
	return []string{sessionKey(id), namesKey(id), phonesKey(id), contactsKey(id)}
}

func purgeKeys(id string) []string {
	return []string{contactsKey(id), namesKey(id), phonesKey(id)}
}

// Script return codes shared by the mutations below.
const (
	resultNotFound       = -1
	resultDuplicateName  = -2
	resultDuplicatePhone = -3
)

var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

var addContactScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_hidden') ~= '0' then
	return -1
end
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
	return -2
end
if redis.call('SISMEMBER', KEYS[3], ARGV[2]) == 1 then
	return -3
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[2])
return redis.call('RPUSH', KEYS[4], ARGV[3])
`)

var incrementScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_hidden') ~= '0' then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'download_count', 1)
`)

var hideScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_hidden') ~= '0' then
	return 0
end
if redis.call('HGET', KEYS[1], 'creator_id') ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'is_hidden', '1')
return 1
`)

var purgeScript = goredis.NewScript(`
local n = redis.call('LLEN', KEYS[1])
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
return n
`)

// SessionStore implements store.SessionStore on Redis. Every mutation that
// checks and writes one session runs as a single Lua script so it is atomic on
// the server. Any goredis.UniversalClient works, including a cluster client.
type SessionStore struct {
	client goredis.UniversalClient
}

// NewSessionStore creates a Redis-backed session store. The client is owned by the caller.
func NewSessionStore(client goredis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// NextFileID allocates the next download file number, starting at 1.
func (s *SessionStore) NextFileID(ctx context.Context) (int, error) {
	id, err := s.client.Incr(ctx, fileIDKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate file id: %w", err)
	}
	return int(id), nil
}

// Create stores a new session hash and indexes it by creator and expiry.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	created, err := createScript.Run(ctx, s.client,
		[]string{sessionKey(session.SessionID)},
		encodeSession(session)...,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if created == 0 {
		return store.ErrSessionExists
	}

	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, creatorKey(session.CreatorID), goredis.Z{
			Score:  float64(session.CreatedAt.UnixMilli()),
			Member: session.SessionID,
		})
		pipe.ZAdd(ctx, expiryKey, goredis.Z{
			Score:  float64(session.ExpiresAt.UnixMilli()),
			Member: session.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
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
	var (
		fields   *goredis.MapStringStringCmd
		contacts *goredis.StringSliceCmd
	)

	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, sessionKey(sessionID))
		contacts = pipe.LRange(ctx, contactsKey(sessionID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session, err := decodeSession(fields.Val())
	if err != nil {
		return nil, err
	}
	if session.IsHidden {
		return nil, store.ErrSessionNotFound
	}

	for _, raw := range contacts.Val() {
		var c contactRecord
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("failed to decode contact: %w", err)
		}
		session.Contacts = append(session.Contacts, c.toModel())
	}

	return session, nil
}

// ListByCreator returns the creator's visible sessions, newest first.
func (s *SessionStore) ListByCreator(ctx context.Context, creatorID string) ([]*models.SessionSummary, error) {
	ids, err := s.client.ZRevRange(ctx, creatorKey(creatorID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	fields := make([]*goredis.MapStringStringCmd, len(ids))
	counts := make([]*goredis.IntCmd, len(ids))

	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			fields[i] = pipe.HGetAll(ctx, sessionKey(id))
			counts[i] = pipe.LLen(ctx, contactsKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	summaries := make([]*models.SessionSummary, 0, len(ids))
	for i := range ids {
		session, err := decodeSession(fields[i].Val())
		if errors.Is(err, store.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.IsHidden {
			continue
		}

		summaries = append(summaries, &models.SessionSummary{
			SessionID:    session.SessionID,
			Name:         session.Name,
			CreatedAt:    session.CreatedAt,
			ExpiresAt:    session.ExpiresAt,
			ContactCount: int(counts[i].Val()),
		})
	}

	return summaries, nil
}

// AddContact appends a contact, enforcing name and phone uniqueness.
func (s *SessionStore) AddContact(ctx context.Context, sessionID string, contact *models.Contact) error {
	payload, err := json.Marshal(newContactRecord(contact))
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	result, err := addContactScript.Run(ctx, s.client,
		contactKeys(sessionID),
		store.NormalizeName(contact.Name),
		contact.Phone,
		string(payload),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to add contact: %w", err)
	}

	switch result {
	case resultNotFound:
		return store.ErrSessionNotFound
	case resultDuplicateName:
		return store.ErrDuplicateName
	case resultDuplicatePhone:
		return store.ErrDuplicatePhone
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("contact_id", contact.ID.String()).
		Int("contacts", result).
		Msg("Added contact")

	return nil
}

// IncrementDownloadCount bumps the counter with HINCRBY and returns the new value.
func (s *SessionStore) IncrementDownloadCount(ctx context.Context, sessionID string) (int, error) {
	count, err := incrementScript.Run(ctx, s.client, []string{sessionKey(sessionID)}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment download count: %w", err)
	}
	if count == resultNotFound {
		return 0, store.ErrSessionNotFound
	}
	return count, nil
}

// Hide marks a session hidden and drops it from the creator's list. The hash
// flag is authoritative; ListByCreator skips hidden sessions still indexed.
func (s *SessionStore) Hide(ctx context.Context, sessionID, creatorID string) error {
	hidden, err := hideScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID)},
		creatorID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to hide session: %w", err)
	}
	if hidden == 0 {
		return store.ErrSessionNotFound
	}

	if err := s.client.ZRem(ctx, creatorKey(creatorID), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to unindex session: %w", err)
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("creator_id", creatorID).
		Msg("Hid session")

	return nil
}

// PurgeContacts deletes contacts and uniqueness sets of sessions that expired
// before expiredBefore. Purged sessions leave the expiry index.
func (s *SessionStore) PurgeContacts(ctx context.Context, expiredBefore time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, expiryKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(expiredBefore.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := purgeScript.Run(ctx, s.client, purgeKeys(id)).Int()
		if err != nil {
			return total, fmt.Errorf("failed to purge contacts for session %s: %w", id, err)
		}
		total += n

		// a failed ZREM leaves the id for the next run, which purges nothing
		if err := s.client.ZRem(ctx, expiryKey, id).Err(); err != nil {
			return total, fmt.Errorf("failed to unindex session %s: %w", id, err)
		}
	}

	if total > 0 {
		log.Info().
			Int("count", total).
			Int("sessions", len(ids)).
			Time("expired_before", expiredBefore).
			Msg("Purged expired contacts")
	}

	return total, nil
}

// encodeSession flattens a session into HSET field/value pairs.
func encodeSession(session *models.Session) []any {
	hidden := "0"
	if session.IsHidden {
		hidden = "1"
	}

	return []any{
		"id", session.ID.String(),
		"session_id", session.SessionID,
		"name", session.Name,
		"creator_id", session.CreatorID,
		"whatsapp_link", session.WhatsAppLink,
		"created_at", session.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at", session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"file_id_num", strconv.Itoa(session.FileIDNum),
		"download_count", strconv.Itoa(session.DownloadCount),
		"is_hidden", hidden,
	}
}

// decodeSession parses an HGETALL result. An empty map means the key does not exist.
func decodeSession(fields map[string]string) (*models.Session, error) {
	if len(fields) == 0 {
		return nil, store.ErrSessionNotFound
	}

	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse session row id: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse expires_at: %w", err)
	}

	fileIDNum, err := strconv.Atoi(fields["file_id_num"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse file_id_num: %w", err)
	}

	downloadCount, err := strconv.Atoi(fields["download_count"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse download_count: %w", err)
	}

	return &models.Session{
		ID:            id,
		SessionID:     fields["session_id"],
		Name:          fields["name"],
		CreatorID:     fields["creator_id"],
		WhatsAppLink:  fields["whatsapp_link"],
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		FileIDNum:     fileIDNum,
		DownloadCount: downloadCount,
		IsHidden:      fields["is_hidden"] == "1",
	}, nil
}

// contactRecord is the JSON shape stored in the contacts list.
type contactRecord struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func newContactRecord(c *models.Contact) contactRecord {
	return contactRecord{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func (r contactRecord) toModel() models.Contact {
	return models.Contact{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
	}
}
