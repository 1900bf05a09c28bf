package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/contactgain/internal/api"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
	memorystore "github.com/wolfeidau/contactgain/internal/store/memory"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	clock  *fakeClock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	clock := newFakeClock()
	svc := NewSessionService(memorystore.NewSessionStore(), WithClock(clock))
	ts := httptest.NewServer(NewServer(svc).Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)
	return &testAPI{t: t, server: ts, clock: clock}
}

func (a *testAPI) do(method, path, creatorID string, body any) *http.Response {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creatorID != "" {
		req.Header.Set(api.CreatorIDHeader, creatorID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireAPIError(t *testing.T, resp *http.Response, status int, code ErrorCode) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	body := decode[api.ErrorResponse](t, resp)
	require.Equal(t, string(code), body.Error)
	require.NotEmpty(t, body.Message)
}

func TestSessionWorkflow(t *testing.T) {
	a := newTestAPI(t)
	creator := uuid.NewString()
	participant := uuid.NewString()

	// 1. Create a session
	resp := a.do(http.MethodPost, "/api/sessions", creator, api.CreateSessionRequest{
		Name:         "Campus Outreach",
		WhatsAppLink: "https://chat.whatsapp.com/Invite123",
		Duration:     "1h",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.Session](t, resp)
	require.Len(t, created.SessionID, 8)
	require.Equal(t, "/api/sessions/"+created.SessionID, resp.Header.Get("Location"))
	require.Equal(t, lifecycle.Active, created.Phase)
	require.Equal(t, "1h 0m 0s", created.TimeRemaining)
	require.True(t, created.IsCreator)

	sessionPath := "/api/sessions/" + created.SessionID

	// 2. Participants join
	resp = a.do(http.MethodPost, sessionPath+"/contacts", "", api.AddContactRequest{Name: "Ama", Phone: "+233241234567"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	contact := decode[api.Contact](t, resp)
	require.Equal(t, "Ama", contact.Name)

	resp = a.do(http.MethodPost, sessionPath+"/contacts", participant, api.AddContactRequest{Name: "Kofi", Phone: "+233201112223"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(http.MethodPost, sessionPath+"/contacts", "", api.AddContactRequest{Name: "ama", Phone: "+233200000000"})
	requireAPIError(t, resp, http.StatusConflict, CodeDuplicateName)

	resp = a.do(http.MethodPost, sessionPath+"/contacts", "", api.AddContactRequest{Name: "Yaw", Phone: "+233241234567"})
	requireAPIError(t, resp, http.StatusConflict, CodeDuplicatePhone)

	resp = a.do(http.MethodPost, sessionPath+"/contacts", "", api.AddContactRequest{Name: "Yaw", Phone: "024"})
	requireAPIError(t, resp, http.StatusBadRequest, CodeValidation)

	// 3. Views differ by requester
	resp = a.do(http.MethodGet, sessionPath, creator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[api.Session](t, resp)
	require.Equal(t, 2, view.ContactCount)
	require.Len(t, view.Contacts, 2)
	require.Equal(t, "Ama", view.Contacts[0].Name)

	resp = a.do(http.MethodGet, sessionPath, participant, nil)
	view = decode[api.Session](t, resp)
	require.False(t, view.IsCreator)
	require.Equal(t, 2, view.ContactCount)
	require.Empty(t, view.Contacts)

	// 4. Participant download waits for expiry
	resp = a.do(http.MethodPost, sessionPath+"/download", participant, nil)
	requireAPIError(t, resp, http.StatusConflict, CodeSessionActive)

	a.clock.Advance(time.Hour + time.Minute)

	resp = a.do(http.MethodPost, sessionPath+"/contacts", "", api.AddContactRequest{Name: "Late", Phone: "+233277777777"})
	requireAPIError(t, resp, http.StatusGone, CodeSessionExpired)

	resp = a.do(http.MethodGet, sessionPath, participant, nil)
	view = decode[api.Session](t, resp)
	require.Equal(t, lifecycle.Expired, view.Phase)
	require.Equal(t, "Expired", view.TimeRemaining)
	require.Equal(t, "04:59:00", view.GraceRemaining)

	resp = a.do(http.MethodPost, sessionPath+"/download", participant, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/vcard;charset=utf-8", resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="Abenapro001.vcf"`, resp.Header.Get("Content-Disposition"))
	require.Equal(t, "1", resp.Header.Get(api.DownloadCountHeader))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t,
		"BEGIN:VCARD\nVERSION:3.0\nFN:Ama\nTEL;TYPE=CELL:+233241234567\nEND:VCARD\n\n"+
			"BEGIN:VCARD\nVERSION:3.0\nFN:Kofi\nTEL;TYPE=CELL:+233201112223\nEND:VCARD",
		string(body))

	// 5. After the grace period the file is gone
	a.clock.Advance(lifecycle.GracePeriod)

	resp = a.do(http.MethodPost, sessionPath+"/download", creator, nil)
	requireAPIError(t, resp, http.StatusGone, CodeSessionExpired)

	// 6. Creator hides the session
	resp = a.do(http.MethodPost, sessionPath+"/hide", participant, nil)
	requireAPIError(t, resp, http.StatusNotFound, CodeNotFound)

	resp = a.do(http.MethodPost, sessionPath+"/hide", creator, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = a.do(http.MethodGet, sessionPath, creator, nil)
	requireAPIError(t, resp, http.StatusNotFound, CodeNotFound)
}

func TestListSessions(t *testing.T) {
	a := newTestAPI(t)
	creator := uuid.NewString()

	for _, d := range []string{"1m", "1d"} {
		resp := a.do(http.MethodPost, "/api/sessions", creator, api.CreateSessionRequest{
			Name:         "Session " + d,
			WhatsAppLink: "https://chat.whatsapp.com/abc",
			Duration:     d,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		a.clock.Advance(time.Second)
	}

	a.clock.Advance(2 * time.Minute)

	resp := a.do(http.MethodGet, "/api/sessions", creator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[api.SessionList](t, resp)
	require.Len(t, list.Sessions, 2)
	require.Equal(t, "Session 1d", list.Sessions[0].Name)
	require.Equal(t, api.StatusActive, list.Sessions[0].Status)
	require.Equal(t, "Session 1m", list.Sessions[1].Name)
	require.Equal(t, api.StatusEnded, list.Sessions[1].Status)

	resp = a.do(http.MethodGet, "/api/sessions", uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[api.SessionList](t, resp).Sessions)

	resp = a.do(http.MethodGet, "/api/sessions", "", nil)
	requireAPIError(t, resp, http.StatusBadRequest, CodeValidation)
}

func TestCreateSession_errors(t *testing.T) {
	a := newTestAPI(t)

	t.Run("invalid creator header", func(t *testing.T) {
		resp := a.do(http.MethodPost, "/api/sessions", "not-a-uuid", api.CreateSessionRequest{
			Name:         "x",
			WhatsAppLink: "https://chat.whatsapp.com/abc",
		})
		requireAPIError(t, resp, http.StatusBadRequest, CodeValidation)
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/sessions", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set(api.CreatorIDHeader, uuid.NewString())

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		requireAPIError(t, resp, http.StatusBadRequest, CodeValidation)
	})
}

func TestNoContactsDownload(t *testing.T) {
	a := newTestAPI(t)
	creator := uuid.NewString()

	resp := a.do(http.MethodPost, "/api/sessions", creator, api.CreateSessionRequest{
		Name:         "Empty",
		WhatsAppLink: "https://chat.whatsapp.com/abc",
	})
	created := decode[api.Session](t, resp)

	resp = a.do(http.MethodPost, "/api/sessions/"+created.SessionID+"/download", creator, nil)
	requireAPIError(t, resp, http.StatusConflict, CodeNoContacts)
}

func TestUnknownSession(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(http.MethodGet, "/api/sessions/missing1", "", nil)
	requireAPIError(t, resp, http.StatusNotFound, CodeNotFound)

	resp = a.do(http.MethodPost, "/api/sessions/missing1/download", "", nil)
	requireAPIError(t, resp, http.StatusNotFound, CodeNotFound)
}

func TestHealthAndDurations(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodGet, "/api/durations", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))

	list := decode[api.DurationList](t, resp)
	require.Equal(t, "1h", list.Default)
	require.Len(t, list.Durations, 15)
	require.Equal(t, "1m", list.Durations[0].Value)
	require.Equal(t, int64(60), list.Durations[0].Seconds)
}
