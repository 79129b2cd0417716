package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"valles-rodes/internal/chat"
	"valles-rodes/internal/models"
)

type fragmentStream struct {
	parts []string
}

func (s *fragmentStream) Next() (string, error) {
	if len(s.parts) == 0 {
		return "", chat.ErrEndOfStream
	}
	p := s.parts[0]
	s.parts = s.parts[1:]
	return p, nil
}

func (s *fragmentStream) Close() error { return nil }

type echoProvider struct{}

func (echoProvider) Stream(ctx context.Context, cred chat.Credential, messages []models.ChatMessage) (chat.Stream, error) {
	last := messages[len(messages)-1].Content
	return &fragmentStream{parts: []string{"Has dicho: ", last}}, nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, gw *Gateway) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func readSession(t *testing.T, conn *websocket.Conn) models.ChatSessionView {
	t.Helper()
	f := read(t, conn)
	require.Equal(t, FrameSession, f.Type)
	var view models.ChatSessionView
	require.NoError(t, json.Unmarshal(f.Payload, &view))
	return view
}

func TestGateway_OpenWithoutCredential(t *testing.T) {
	gw := NewGateway(Config{}, echoProvider{}, zap.NewNop())
	conn := dial(t, gw)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameOpen}))
	view := readSession(t, conn)

	assert.Equal(t, "unavailable", view.State)
	assert.False(t, view.InputEnabled)
	require.Len(t, view.Transcript, 1)
	assert.Equal(t, chat.UnavailableMessage, view.Transcript[0].Content)
	assert.Equal(t, chat.UnavailableError, view.Error)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameMessage, Content: "hola"}))
	f := read(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, string(f.Payload), "UNAVAILABLE")
}

func TestGateway_StreamsExchange(t *testing.T) {
	gw := NewGateway(Config{Credential: &chat.Credential{APIKey: "k"}}, echoProvider{}, zap.NewNop())
	conn := dial(t, gw)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameOpen}))
	view := readSession(t, conn)
	assert.Equal(t, "idle", view.State)
	assert.True(t, view.InputEnabled)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameMessage, Content: "hola"}))

	view = readSession(t, conn)
	assert.Equal(t, "awaiting_response", view.State)
	assert.True(t, view.Pending)
	require.Len(t, view.Transcript, 3)
	assert.Equal(t, "hola", view.Transcript[1].Content)
	assert.Empty(t, view.Transcript[2].Content)

	var updates []models.TranscriptUpdate
	for {
		f := read(t, conn)
		if f.Type == FrameSession {
			require.NoError(t, json.Unmarshal(f.Payload, &view))
			break
		}
		require.Equal(t, FrameTranscriptUpdate, f.Type)
		var u models.TranscriptUpdate
		require.NoError(t, json.Unmarshal(f.Payload, &u))
		updates = append(updates, u)
	}

	require.Len(t, updates, 2)
	assert.Equal(t, 2, updates[0].Index)
	assert.Equal(t, "Has dicho: ", updates[0].Message.Content)
	assert.Equal(t, "Has dicho: hola", updates[1].Message.Content)

	assert.Equal(t, "idle", view.State)
	assert.Equal(t, "Has dicho: hola", view.Transcript[2].Content)
}

func TestGateway_RejectsEmptyAndUnknown(t *testing.T) {
	gw := NewGateway(Config{Credential: &chat.Credential{APIKey: "k"}}, echoProvider{}, zap.NewNop())
	conn := dial(t, gw)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameMessage, Content: "hola"}))
	f := read(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, string(f.Payload), "NOT_OPEN")

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameOpen}))
	readSession(t, conn)

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: FrameMessage, Content: "  "}))
	f = read(t, conn)
	assert.Contains(t, string(f.Payload), "EMPTY_MESSAGE")

	require.NoError(t, conn.WriteJSON(models.ChatClientFrame{Type: "ping"}))
	f = read(t, conn)
	assert.Contains(t, string(f.Payload), "UNKNOWN_FRAME")
}

func TestGateway_RateLimited(t *testing.T) {
	gw := NewGateway(Config{Credential: &chat.Credential{APIKey: "k"}, MessagesPerMinute: 1}, echoProvider{}, zap.NewNop())
	lim := gw.limiter()

	allowed := 0
	for i := 0; i < 5; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
	assert.True(t, NewGateway(Config{}, nil, zap.NewNop()).limiter().Allow())
}
