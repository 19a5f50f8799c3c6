package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tgrecorder/internal/auth"
	"tgrecorder/internal/config"
	"tgrecorder/internal/journal"
	"tgrecorder/internal/session"
	"tgrecorder/internal/tdapi"
	"tgrecorder/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("recorder: %v", err)
		os.Exit(1)
	}
	log.Println("Recorder stopped.")
}

func run(ctx context.Context, cfg config.Config) error {
	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	observers := auth.Observers{jrnl}
	notifier, err := telegram.NewNotifier(cfg.NotifyBotToken, cfg.NotifyChatID)
	if err != nil {
		log.Printf("⚠️ notifier disabled: %v", err)
	} else if notifier != nil {
		defer notifier.Close()
		observers = append(observers, notifier)
	}

	prompter := auth.NewConsolePrompter(os.Stdin, os.Stdout)
	defer prompter.Close()

	params := session.Parameters(cfg)
	runner := &session.Runner{
		NewEngine: func() session.Engine {
			return tdapi.NewClient(cfg)
		},
		NewCoordinator: func(sender auth.Sender) *auth.Coordinator {
			return auth.New(session.Credentials(cfg), sender, prompter, auth.Options{
				Parameters: &params,
				Observer:   observers,
				Retry:      session.RetryLimiter(cfg),
			})
		},
	}

	log.Println("Recorder started…")
	return runner.Run(ctx)
}
