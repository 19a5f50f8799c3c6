package tdapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgrecorder/internal/config"
)

var errStop = errors.New("stop")

// fakeBridge mimics a tdjson HTTP bridge: /send records requests, /receive hands out
// queued batches or 204 after a short wait.
type fakeBridge struct {
	mu         sync.Mutex
	sent       []map[string]any
	authHeader []string
	sendStatus int
	onSend     func(req map[string]any)

	queue chan []map[string]any
}

func newFakeBridge(t *testing.T, opts ...func(*fakeBridge)) (*fakeBridge, *httptest.Server) {
	t.Helper()
	b := &fakeBridge{queue: make(chan []map[string]any, 16)}
	for _, opt := range opts {
		opt(b)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.sent = append(b.sent, req)
		b.authHeader = append(b.authHeader, r.Header.Get("Authorization"))
		status, onSend := b.sendStatus, b.onSend
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if onSend != nil {
			onSend(req)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/receive", func(w http.ResponseWriter, r *http.Request) {
		select {
		case batch := <-b.queue:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(batch)
		case <-time.After(20 * time.Millisecond):
			w.WriteHeader(http.StatusNoContent)
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBridge) push(objs ...map[string]any) {
	b.queue <- objs
}

func (b *fakeBridge) requests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.sent...)
}

func (b *fakeBridge) authHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeader...)
}

func stateUpdate(typ string) map[string]any {
	return map[string]any{
		"@type":               TypeUpdateAuthorizationState,
		"authorization_state": map[string]any{"@type": typ},
	}
}

func newTestClient(base string) *Client {
	c := NewClient(config.Config{
		GatewayBase:        base,
		GatewayAuthBearer:  "bridge-token",
		HTTPTimeoutSeconds: 5,
		PollTimeoutSeconds: 1,
	})
	c.SetLogger(log.New(io.Discard, "", 0))
	return c
}

func TestClientRoutesResponseOnce(t *testing.T) {
	b, srv := newFakeBridge(t, func(b *fakeBridge) {
		b.onSend = func(req map[string]any) {
			extra := req["@extra"]
			b.push(
				map[string]any{"@type": "error", "@extra": extra, "code": 400, "message": "PHONE_CODE_INVALID"},
				map[string]any{"@type": "ok", "@extra": extra},
				stateUpdate(TypeAuthorizationStateClosed),
			)
		}
	})
	b.push(stateUpdate(TypeAuthorizationStateWaitCode))

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		states []string
		got    []Object
	)
	err := c.Run(ctx, func(ctx context.Context, st AuthorizationState) error {
		states = append(states, st.Type())
		if _, ok := st.(*AuthorizationStateClosed); ok {
			return errStop
		}
		c.Send(ctx, &CheckAuthenticationCode{Code: "54321"}, func(_ context.Context, obj Object) error {
			got = append(got, obj)
			return nil
		})
		return nil
	})
	require.ErrorIs(t, err, errStop)

	assert.Equal(t, []string{TypeAuthorizationStateWaitCode, TypeAuthorizationStateClosed}, states)
	require.Len(t, got, 1)
	assert.Equal(t, &Error{Code: 400, Message: "PHONE_CODE_INVALID"}, got[0])
	assert.Equal(t, 0, c.Pending())

	reqs := b.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "checkAuthenticationCode", reqs[0]["@type"])
	assert.Equal(t, "54321", reqs[0]["code"])
	assert.NotEmpty(t, reqs[0]["@extra"])
	assert.Equal(t, []string{"Bearer bridge-token"}, b.authHeaders())
}

func TestClientSendFailureCompletesHandler(t *testing.T) {
	b, srv := newFakeBridge(t, func(b *fakeBridge) {
		b.sendStatus = http.StatusBadGateway
	})
	b.push(stateUpdate(TypeAuthorizationStateWaitPhoneNumber))

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Object
	err := c.Run(ctx, func(ctx context.Context, st AuthorizationState) error {
		c.Send(ctx, &SetAuthenticationPhoneNumber{PhoneNumber: "+1"}, func(_ context.Context, obj Object) error {
			got = append(got, obj)
			return errStop
		})
		return nil
	})
	require.ErrorIs(t, err, errStop)

	require.Len(t, got, 1)
	e, ok := got[0].(*Error)
	require.True(t, ok, "got %T", got[0])
	assert.Equal(t, int32(sendFailedCode), e.Code)
	assert.Contains(t, e.Message, "502")
	assert.Equal(t, 0, c.Pending())
}

func TestClientSkipsUnknownObjects(t *testing.T) {
	b, srv := newFakeBridge(t)
	b.push(
		map[string]any{"@type": "updateOption", "name": "version"},
		stateUpdate("authorizationStateWaitEmailAddress"),
		map[string]any{"no_type": true},
		stateUpdate(TypeAuthorizationStateReady),
	)

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var states []string
	err := c.Run(ctx, func(_ context.Context, st AuthorizationState) error {
		states = append(states, st.Type())
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{TypeAuthorizationStateReady}, states)
}

func TestClientRunStopsOnCancel(t *testing.T) {
	_, srv := newFakeBridge(t)
	c := newTestClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := c.Run(ctx, func(context.Context, AuthorizationState) error {
		t.Fatal("no updates expected")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
