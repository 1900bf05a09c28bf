package redis

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/contactgain/internal/models"
	"github.com/wolfeidau/contactgain/internal/store"
)

func TestKeys(t *testing.T) {
	require.Equal(t, "session:{abc}", sessionKey("abc"))
	require.Equal(t, "session:{abc}:contacts", contactsKey("abc"))
	require.Equal(t, "session:{abc}:names", namesKey("abc"))
	require.Equal(t, "session:{abc}:phones", phonesKey("abc"))
	require.Equal(t, "creator:{c1}:sessions", creatorKey("c1"))
}

// hashTag returns the part of key Redis Cluster hashes to pick a slot.
func hashTag(key string) string {
	start := strings.IndexByte(key, '{')
	if start < 0 {
		return key
	}
	end := strings.IndexByte(key[start+1:], '}')
	if end <= 0 {
		return key
	}
	return key[start+1 : start+1+end]
}

func TestScriptKeysShareSlot(t *testing.T) {
	for name, keys := range map[string][]string{
		"add contact": contactKeys("abcdEFGH"),
		"purge":       purgeKeys("abcdEFGH"),
	} {
		t.Run(name, func(t *testing.T) {
			for _, key := range keys {
				require.Equal(t, "abcdEFGH", hashTag(key), key)
			}
		})
	}

	require.Equal(t, "abcdEFGH", hashTag(sessionKey("abcdEFGH")))
}

func TestDecodeSession(t *testing.T) {
	t.Run("empty hash is not found", func(t *testing.T) {
		_, err := decodeSession(map[string]string{})
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("encoded fields decode to the same session", func(t *testing.T) {
		created := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
		session := &models.Session{
			ID:            uuid.Must(uuid.NewV7()),
			SessionID:     "abcdEFGH",
			Name:          "Choir",
			CreatorID:     uuid.NewString(),
			WhatsAppLink:  "https://chat.whatsapp.com/xyz",
			CreatedAt:     created,
			ExpiresAt:     created.Add(time.Hour),
			FileIDNum:     7,
			DownloadCount: 3,
			IsHidden:      true,
		}

		pairs := encodeSession(session)
		require.Len(t, pairs, 20)

		fields := make(map[string]string, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			fields[pairs[i].(string)] = pairs[i+1].(string)
		}

		got, err := decodeSession(fields)
		require.NoError(t, err)
		require.Equal(t, session.ID, got.ID)
		require.Equal(t, session.SessionID, got.SessionID)
		require.Equal(t, session.Name, got.Name)
		require.Equal(t, session.CreatorID, got.CreatorID)
		require.Equal(t, session.WhatsAppLink, got.WhatsAppLink)
		require.True(t, session.CreatedAt.Equal(got.CreatedAt))
		require.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
		require.Equal(t, 7, got.FileIDNum)
		require.Equal(t, 3, got.DownloadCount)
		require.True(t, got.IsHidden)
	})

	t.Run("corrupt counter", func(t *testing.T) {
		_, err := decodeSession(map[string]string{
			"id":             uuid.NewString(),
			"created_at":     time.Now().Format(time.RFC3339Nano),
			"expires_at":     time.Now().Format(time.RFC3339Nano),
			"file_id_num":    "1",
			"download_count": "many",
		})
		require.Error(t, err)
	})
}

func TestClientConfig(t *testing.T) {
	cfg := &ClientConfig{Addr: "localhost:6379"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, int32(5), cfg.DialTimeoutSeconds)
	require.Equal(t, 10, cfg.PoolSize)

	require.Error(t, (&ClientConfig{}).Validate())
	require.Error(t, (&ClientConfig{Addr: "x", DB: -1}).Validate())
}
