package session

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tgrecorder/internal/auth"
	"tgrecorder/internal/config"
	"tgrecorder/internal/tdapi"
)

var errExhausted = errors.New("no more states")

type fakeEngine struct {
	states []tdapi.AuthorizationState
	sent   []tdapi.Function
}

func (e *fakeEngine) Send(_ context.Context, fn tdapi.Function, _ tdapi.ResponseHandler) {
	e.sent = append(e.sent, fn)
}

func (e *fakeEngine) Run(ctx context.Context, onState tdapi.StateFunc) error {
	for _, st := range e.states {
		if err := onState(ctx, st); err != nil {
			return err
		}
	}
	return errExhausted
}

type noPrompts struct{}

func (noPrompts) Prompt(context.Context, auth.Field) (string, error) {
	return "", auth.ErrInputClosed
}

func TestRunnerRestartsAfterClosed(t *testing.T) {
	engines := []*fakeEngine{
		{states: []tdapi.AuthorizationState{
			&tdapi.AuthorizationStateWaitTdlibParameters{},
			&tdapi.AuthorizationStateReady{},
			&tdapi.AuthorizationStateClosing{},
			&tdapi.AuthorizationStateClosed{},
			&tdapi.AuthorizationStateReady{}, // never reached
		}},
		{states: []tdapi.AuthorizationState{
			&tdapi.AuthorizationStateWaitEncryptionKey{},
		}},
	}
	var coords []*auth.Coordinator
	n := 0
	r := &Runner{
		NewEngine: func() Engine {
			e := engines[n]
			n++
			return e
		},
		NewCoordinator: func(sender auth.Sender) *auth.Coordinator {
			c := auth.New(auth.Credentials{APIID: 1, APIHash: "h"}, sender, noPrompts{}, auth.Options{
				Out:    io.Discard,
				Logger: log.New(io.Discard, "", 0),
			})
			coords = append(coords, c)
			return c
		},
		Logger: log.New(io.Discard, "", 0),
	}

	err := r.Run(context.Background())
	require.ErrorIs(t, err, errExhausted)

	require.Equal(t, 2, n)
	require.Len(t, coords, 2)
	assert.True(t, coords[0].NeedsRestart())
	assert.Equal(t, uint64(4), coords[0].Epoch())
	assert.False(t, coords[1].NeedsRestart())
	assert.Equal(t, uint64(1), coords[1].Epoch())

	require.Len(t, engines[0].sent, 1)
	assert.Equal(t, "setTdlibParameters", engines[0].sent[0].Type())
	require.Len(t, engines[1].sent, 1)
	assert.Equal(t, "checkDatabaseEncryptionKey", engines[1].sent[0].Type())
}

func TestRunnerStopsOnPromptFailure(t *testing.T) {
	engine := &fakeEngine{states: []tdapi.AuthorizationState{&tdapi.AuthorizationStateWaitPhoneNumber{}}}
	r := &Runner{
		NewEngine: func() Engine { return engine },
		NewCoordinator: func(sender auth.Sender) *auth.Coordinator {
			return auth.New(auth.Credentials{}, sender, noPrompts{}, auth.Options{Out: io.Discard})
		},
	}

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, auth.ErrInputClosed)
	assert.Empty(t, engine.sent)
}

func TestConfigConversions(t *testing.T) {
	cfg := config.Default()
	cfg.APIID = 12345
	cfg.APIHash = "abc"
	cfg.FirstName = "Ada"
	cfg.EncryptionKey = "k"

	assert.Equal(t, auth.Credentials{APIID: 12345, APIHash: "abc", FirstName: "Ada"}, Credentials(cfg))

	want := auth.DefaultParameters()
	want.EncryptionKey = "k"
	assert.Equal(t, want, Parameters(cfg))
}

func TestRetryLimiter(t *testing.T) {
	cfg := config.Default()

	cfg.RetryIntervalMillis = 0
	assert.Equal(t, rate.Inf, RetryLimiter(cfg).Limit())

	cfg.RetryIntervalMillis = 500
	cfg.RetryBurst = 0
	l := RetryLimiter(cfg)
	assert.Equal(t, rate.Every(500*time.Millisecond), l.Limit())
	assert.Equal(t, 1, l.Burst())

	cfg.RetryBurst = 3
	assert.Equal(t, 3, RetryLimiter(cfg).Burst())
}
