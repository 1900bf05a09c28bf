package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/contactgain/internal/lifecycle"
	"github.com/wolfeidau/contactgain/internal/server"
	memorystore "github.com/wolfeidau/contactgain/internal/store/memory"
)

var sessionIDPattern = regexp.MustCompile(`Session created with ID: (\S+)`)

func newTestGlobals(t *testing.T, serverURL string) (*Globals, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return &Globals{Server: serverURL, Home: t.TempDir(), Stdout: buf}, buf
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := server.NewSessionService(memorystore.NewSessionStore())
	ts := httptest.NewServer(server.NewServer(svc).Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts
}

func TestCommands_sessionWorkflow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	creator, creatorOut := newTestGlobals(t, ts.URL)
	participant, participantOut := newTestGlobals(t, ts.URL)

	configPath := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"name: Youth Camp\nwhatsappLink: https://chat.whatsapp.com/camp\nduration: 6h\n"), 0600))

	create := &CreateCmd{Duration: "1h", Config: configPath}
	require.NoError(t, create.Run(ctx, creator))
	assert.Equal(t, "6h", create.Duration)

	match := sessionIDPattern.FindStringSubmatch(creatorOut.String())
	require.Len(t, match, 2)
	sessionID := match[1]

	require.NoError(t, (&JoinCmd{ID: sessionID, Name: "Ama", Phone: "+233241234567"}).Run(ctx, participant))
	assert.Contains(t, participantOut.String(), "Joined session "+sessionID+" as Ama")
	assert.Contains(t, participantOut.String(), "Join the WhatsApp group: https://chat.whatsapp.com/camp")

	err := (&JoinCmd{ID: sessionID, Name: "ama", Phone: "+233200000000"}).Run(ctx, participant)
	require.ErrorContains(t, err, "already taken")

	creatorOut.Reset()
	require.NoError(t, (&ShowCmd{ID: sessionID}).Run(ctx, creator))
	assert.Contains(t, creatorOut.String(), "Youth Camp")
	assert.Contains(t, creatorOut.String(), "+233241234567")

	participantOut.Reset()
	require.NoError(t, (&ShowCmd{ID: sessionID}).Run(ctx, participant))
	assert.Contains(t, participantOut.String(), "Contacts:   1")
	assert.NotContains(t, participantOut.String(), "+233241234567")

	err = (&DownloadCmd{ID: sessionID, Out: t.TempDir()}).Run(ctx, participant)
	require.ErrorContains(t, err, "still active")

	outDir := filepath.Join(t.TempDir(), "vcf")
	creatorOut.Reset()
	require.NoError(t, (&DownloadCmd{ID: sessionID, Out: outDir}).Run(ctx, creator))
	assert.Contains(t, creatorOut.String(), "download #1")

	data, err := os.ReadFile(filepath.Join(outDir, "Abenapro001.vcf"))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\nVERSION:3.0\nFN:Ama\nTEL;TYPE=CELL:+233241234567\nEND:VCARD", string(data))

	creatorOut.Reset()
	require.NoError(t, (&ListCmd{}).Run(ctx, creator))
	assert.Contains(t, creatorOut.String(), sessionID)
	assert.Contains(t, creatorOut.String(), "Active")

	err = (&HideCmd{ID: sessionID}).Run(ctx, participant)
	require.ErrorContains(t, err, "not created by you")

	require.NoError(t, (&HideCmd{ID: sessionID}).Run(ctx, creator))

	creatorOut.Reset()
	require.NoError(t, (&ListCmd{}).Run(ctx, creator))
	assert.Contains(t, creatorOut.String(), "No sessions found.")
}

func TestCreateCmd_requiresLink(t *testing.T) {
	globals, _ := newTestGlobals(t, "http://127.0.0.1:1")

	err := (&CreateCmd{Name: "No link"}).Run(context.Background(), globals)
	require.ErrorContains(t, err, "whatsapp link is required")
}

func TestCreateCmd_jsonConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(configPath, []byte(
		`{"name":"Alumni","whatsappLink":"https://chat.whatsapp.com/alumni"}`), 0600))

	cmd := &CreateCmd{Name: "flag name", Duration: "1d", Config: configPath}
	require.NoError(t, cmd.loadConfigFile())
	assert.Equal(t, "Alumni", cmd.Name)
	assert.Equal(t, "https://chat.whatsapp.com/alumni", cmd.Link)
	assert.Equal(t, "1d", cmd.Duration)
}

func TestDurationsCmd(t *testing.T) {
	ts := newTestServer(t)
	globals, out := newTestGlobals(t, ts.URL)

	require.NoError(t, (&DurationsCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "1h    1 Hour (default)")
}

func TestFormatTick(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tick := lifecycle.Snapshot(expiresAt.Add(-90*time.Second), expiresAt)
	assert.Contains(t, formatTick(tick), "Active, ends in 1m 30s")

	tick = lifecycle.Snapshot(expiresAt.Add(time.Hour), expiresAt)
	assert.Contains(t, formatTick(tick), "download window closes in 04:00:00")

	// the end of the grace period itself is still Expired
	tick = lifecycle.Snapshot(expiresAt.Add(lifecycle.GracePeriod), expiresAt)
	assert.Contains(t, formatTick(tick), "Expired, download window closes in 00:00:00")

	tick = lifecycle.Snapshot(expiresAt.Add(lifecycle.GracePeriod+time.Second), expiresAt)
	assert.Contains(t, formatTick(tick), "Download window closed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
