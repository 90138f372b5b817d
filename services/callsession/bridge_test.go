package callsession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProvider returns the queued join results in order.
type scriptedProvider struct {
	results []error
	calls   int
}

func (p *scriptedProvider) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	return "sess-1", nil
}

func (p *scriptedProvider) Join(ctx context.Context, sessionID string) (*Handle, error) {
	p.calls++
	if p.calls <= len(p.results) && p.results[p.calls-1] != nil {
		return nil, p.results[p.calls-1]
	}
	return &Handle{SessionID: sessionID, URL: "https://video/" + sessionID}, nil
}

func TestJoinSession_RetriesNotFound(t *testing.T) {
	p := &scriptedProvider{results: []error{ErrSessionNotFound, ErrSessionNotFound}}
	b := NewDefaultCallBridge(p, 5, time.Millisecond, nil, zap.NewNop())

	h, err := b.JoinSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", h.SessionID)
	assert.Equal(t, 3, p.calls)
}

func TestJoinSession_TimesOutAfterMaxAttempts(t *testing.T) {
	p := &scriptedProvider{results: []error{ErrSessionNotFound, ErrSessionNotFound, ErrSessionNotFound, ErrSessionNotFound, ErrSessionNotFound, nil}}
	b := NewDefaultCallBridge(p, 5, time.Millisecond, nil, zap.NewNop())

	_, err := b.JoinSession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrSessionJoinTimeout)
	assert.Equal(t, 5, p.calls)
}

func TestJoinSession_OtherErrorsAreImmediate(t *testing.T) {
	boom := errors.New("forbidden")
	p := &scriptedProvider{results: []error{boom}}
	b := NewDefaultCallBridge(p, 5, time.Millisecond, nil, zap.NewNop())

	_, err := b.JoinSession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.calls)
}

func TestJoinSession_CancelledWait(t *testing.T) {
	p := &scriptedProvider{results: []error{ErrSessionNotFound, ErrSessionNotFound}}
	b := NewDefaultCallBridge(p, 5, time.Hour, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.JoinSession(ctx, "sess-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.calls)
}

func TestHTTPProvider(t *testing.T) {
	joins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sessions":
			var req CreateCallRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "b1", req.BookingID)
			json.NewEncoder(w).Encode(Handle{SessionID: "sess-9"})
		case r.Method == http.MethodGet && r.URL.Path == "/sessions/sess-9":
			joins++
			if joins == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(Handle{SessionID: "sess-9", URL: "https://video/sess-9"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", "key")
	id, err := p.CreateCall(context.Background(), CreateCallRequest{BookingID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, "sess-9", id)

	_, err = p.Join(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	b := NewDefaultCallBridge(p, 3, time.Millisecond, nil, zap.NewNop())
	h, err := b.JoinSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://video/sess-9", h.URL)
}

func TestLocalProvider_JoinableAfterDelay(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	p := NewLocalProvider(3 * time.Second)
	p.now = func() time.Time { return now }

	id, err := p.CreateCall(context.Background(), CreateCallRequest{})
	require.NoError(t, err)
	_, err = p.Join(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(3 * time.Second)
	h, err := p.Join(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, h.SessionID)
}
