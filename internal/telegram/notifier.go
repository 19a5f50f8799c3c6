package telegram

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgrecorder/internal/auth"
	"tgrecorder/internal/tdapi"
)

const defaultBuffer = 16

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier mirrors the handshake milestones an operator cares about to a Telegram chat.
// Messages go out from a background goroutine; when the buffer is full they are dropped.
type Notifier struct {
	bot    botSender
	chatID int64
	log    *log.Logger

	ch        chan string
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ auth.Observer = (*Notifier)(nil)

// NewNotifier returns nil, and no error, when token or chatID is unset.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("🤖 Notifier bot: %s", bot.Self.UserName)
	return newNotifier(bot, chatID, defaultBuffer), nil
}

func newNotifier(bot botSender, chatID int64, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 1
	}
	n := &Notifier{
		bot:    bot,
		chatID: chatID,
		log:    log.Default(),
		ch:     make(chan string, buffer),
		done:   make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case text := <-n.ch:
			n.reply(text)
		case <-n.done:
			for {
				select {
				case text := <-n.ch:
					n.reply(text)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) reply(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Printf("❌ telegram send error: %v", err)
	}
}

func (n *Notifier) Observe(_ context.Context, ev auth.Event) {
	if n == nil || n.closed.Load() {
		return
	}
	text, ok := Message(ev)
	if !ok {
		return
	}
	select {
	case n.ch <- text:
	case <-n.done:
	default:
		n.dropped.Add(1)
	}
}

// Message renders ev for the operator chat. Events that are not worth a message report false.
func Message(ev auth.Event) (string, bool) {
	switch ev.Kind {
	case auth.EventState:
		switch ev.State {
		case tdapi.TypeAuthorizationStateReady:
			return "✅ Got authorization", true
		case tdapi.TypeAuthorizationStateClosed:
			return "⛔ Terminated (Needs restart)", true
		case tdapi.TypeAuthorizationStateWaitOtherDeviceConfirmation:
			return "🔗 Confirm this login link on another device: " + ev.Detail, true
		}
	case auth.EventAuthError:
		return "❌ " + ev.State + " rejected: " + ev.Detail, true
	}
	return "", false
}

// Close flushes queued messages and stops the sender goroutine.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		close(n.done)
		n.wg.Wait()
	})
}

func (n *Notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}
