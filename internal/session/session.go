// Package session runs authorization sessions back to back, starting a fresh engine and
// coordinator whenever the previous session reaches Closed.
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"tgrecorder/internal/auth"
	"tgrecorder/internal/config"
	"tgrecorder/internal/tdapi"
)

// ErrRestart ends a session whose engine reported Closed.
var ErrRestart = errors.New("session closed, restart required")

// Engine is the external client engine for one session.
type Engine interface {
	auth.Sender
	Run(ctx context.Context, onState tdapi.StateFunc) error
}

type Runner struct {
	NewEngine      func() Engine
	NewCoordinator func(sender auth.Sender) *auth.Coordinator
	Logger         *log.Logger
}

// Run starts sessions until ctx ends or a session fails for a reason other than Closed.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	for n := 1; ; n++ {
		err := r.runOnce(ctx)
		if !errors.Is(err, ErrRestart) {
			return err
		}
		logger.Printf("♻️ session %d closed, restarting", n)
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	engine := r.NewEngine()
	coord := r.NewCoordinator(engine)
	return engine.Run(ctx, func(ctx context.Context, st tdapi.AuthorizationState) error {
		if err := coord.HandleState(ctx, st); err != nil {
			return err
		}
		if coord.NeedsRestart() {
			return ErrRestart
		}
		return nil
	})
}

func Credentials(cfg config.Config) auth.Credentials {
	return auth.Credentials{
		APIID:     cfg.APIID,
		APIHash:   cfg.APIHash,
		FirstName: cfg.FirstName,
		LastName:  cfg.LastName,
	}
}

func Parameters(cfg config.Config) auth.Parameters {
	return auth.Parameters{
		DatabaseDirectory:      cfg.DatabaseDirectory,
		UseMessageDatabase:     cfg.UseMessageDatabase,
		UseSecretChats:         cfg.UseSecretChats,
		SystemLanguageCode:     cfg.SystemLanguageCode,
		DeviceModel:            cfg.DeviceModel,
		ApplicationVersion:     cfg.ApplicationVersion,
		EnableStorageOptimizer: cfg.EnableStorageOptimizer,
		EncryptionKey:          cfg.EncryptionKey,
	}
}

// RetryLimiter paces automatic retries. A non-positive interval disables pacing.
func RetryLimiter(cfg config.Config) *rate.Limiter {
	if cfg.RetryIntervalMillis <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.RetryBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Duration(cfg.RetryIntervalMillis)*time.Millisecond), burst)
}
