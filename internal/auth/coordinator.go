package auth

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"tgrecorder/internal/tdapi"
)

// Sender is the engine's send primitive. h must be called exactly once.
type Sender interface {
	Send(ctx context.Context, fn tdapi.Function, h tdapi.ResponseHandler)
}

// Credentials identify the application and the account to register.
type Credentials struct {
	APIID     int32
	APIHash   string
	FirstName string
	LastName  string
}

// Parameters are the fixed engine settings sent with the credentials.
type Parameters struct {
	DatabaseDirectory      string
	UseMessageDatabase     bool
	UseSecretChats         bool
	SystemLanguageCode     string
	DeviceModel            string
	ApplicationVersion     string
	EnableStorageOptimizer bool
	EncryptionKey          string
}

func DefaultParameters() Parameters {
	return Parameters{
		DatabaseDirectory:      "tdlib",
		UseMessageDatabase:     true,
		UseSecretChats:         true,
		SystemLanguageCode:     "en",
		DeviceModel:            "Desktop",
		ApplicationVersion:     "1.0",
		EnableStorageOptimizer: true,
	}
}

type Options struct {
	// Parameters default to DefaultParameters when zero.
	Parameters *Parameters
	// Out receives prompts' companion output: status lines, links and errors. Defaults to stdout.
	Out      io.Writer
	Logger   *log.Logger
	Observer Observer
	// Retry paces automatic re-dispatch after an error. Defaults to one per second, burst 3.
	Retry *rate.Limiter
}

// Coordinator is the authorization state machine for one session.
type Coordinator struct {
	creds    Credentials
	params   Parameters
	sender   Sender
	prompter Prompter
	out      io.Writer
	log      *log.Logger
	observer Observer
	retry    *rate.Limiter

	epoch       atomic.Uint64
	authorized  atomic.Bool
	needRestart atomic.Bool
}

func New(creds Credentials, sender Sender, prompter Prompter, opts Options) *Coordinator {
	c := &Coordinator{
		creds:    creds,
		params:   DefaultParameters(),
		sender:   sender,
		prompter: prompter,
		out:      opts.Out,
		log:      opts.Logger,
		observer: opts.Observer,
		retry:    opts.Retry,
	}
	if opts.Parameters != nil {
		c.params = *opts.Parameters
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.log == nil {
		c.log = log.Default()
	}
	if c.observer == nil {
		c.observer = Observers(nil)
	}
	if c.retry == nil {
		c.retry = rate.NewLimiter(rate.Every(time.Second), 3)
	}
	return c
}

// Authorized reports whether the session is in the Ready state.
func (c *Coordinator) Authorized() bool { return c.authorized.Load() }

// NeedsRestart reports whether Closed has been observed. It never goes back to false.
func (c *Coordinator) NeedsRestart() bool { return c.needRestart.Load() }

// Epoch is the number of state updates handled so far.
func (c *Coordinator) Epoch() uint64 { return c.epoch.Load() }

// HandleState reacts to a new authorization state. It returns an error only when the
// input provider fails; authentication errors are retried, not returned.
func (c *Coordinator) HandleState(ctx context.Context, st tdapi.AuthorizationState) error {
	epoch := c.epoch.Add(1)

	ev := Event{Epoch: epoch, State: st.Type(), Kind: EventState}
	if link, ok := st.(*tdapi.AuthorizationStateWaitOtherDeviceConfirmation); ok {
		ev.Detail = link.Link
	}
	c.emit(ctx, ev)

	return st.Accept(&dispatcher{ctx: ctx, c: c, state: st})
}

func (c *Coordinator) emit(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	c.observer.Observe(ctx, ev)
}

func (c *Coordinator) println(line string) {
	fmt.Fprintln(c.out, line)
}

func (c *Coordinator) ask(ctx context.Context, f Field) (string, error) {
	val, err := c.prompter.Prompt(ctx, f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f, err)
	}
	return val, nil
}

// send wraps fn's response handler with the current epoch and hands it to the engine.
func (c *Coordinator) send(ctx context.Context, st tdapi.AuthorizationState, fn tdapi.Function) {
	h := c.wrap(st)
	c.sender.Send(ctx, fn, h.handle)
	c.emit(ctx, Event{Epoch: h.epoch, State: st.Type(), Kind: EventRequest, Detail: fn.Type()})
}

// dispatcher handles exactly one state update.
type dispatcher struct {
	ctx   context.Context
	c     *Coordinator
	state tdapi.AuthorizationState
}

var _ tdapi.StateVisitor = (*dispatcher)(nil)

func (d *dispatcher) VisitReady(*tdapi.AuthorizationStateReady) error {
	d.c.authorized.Store(true)
	d.c.println("Got authorization")
	return nil
}

func (d *dispatcher) VisitLoggingOut(*tdapi.AuthorizationStateLoggingOut) error {
	d.c.authorized.Store(false)
	d.c.println("Logging out")
	return nil
}

func (d *dispatcher) VisitClosing(*tdapi.AuthorizationStateClosing) error {
	d.c.println("Closing")
	return nil
}

func (d *dispatcher) VisitClosed(*tdapi.AuthorizationStateClosed) error {
	d.c.authorized.Store(false)
	d.c.needRestart.Store(true)
	d.c.println("Terminated (Needs restart)")
	return nil
}

func (d *dispatcher) VisitWaitCode(*tdapi.AuthorizationStateWaitCode) error {
	code, err := d.c.ask(d.ctx, FieldCode)
	if err != nil {
		return err
	}
	d.c.send(d.ctx, d.state, &tdapi.CheckAuthenticationCode{Code: code})
	return nil
}

func (d *dispatcher) VisitWaitRegistration(*tdapi.AuthorizationStateWaitRegistration) error {
	d.c.send(d.ctx, d.state, &tdapi.RegisterUser{
		FirstName: d.c.creds.FirstName,
		LastName:  d.c.creds.LastName,
	})
	return nil
}

func (d *dispatcher) VisitWaitPassword(*tdapi.AuthorizationStateWaitPassword) error {
	password, err := d.c.ask(d.ctx, FieldPassword)
	if err != nil {
		return err
	}
	d.c.send(d.ctx, d.state, &tdapi.CheckAuthenticationPassword{Password: password})
	return nil
}

func (d *dispatcher) VisitWaitOtherDeviceConfirmation(st *tdapi.AuthorizationStateWaitOtherDeviceConfirmation) error {
	d.c.println("Confirm this login link on another device: " + st.Link)
	return nil
}

func (d *dispatcher) VisitWaitPhoneNumber(*tdapi.AuthorizationStateWaitPhoneNumber) error {
	phone, err := d.c.ask(d.ctx, FieldPhoneNumber)
	if err != nil {
		return err
	}
	d.c.send(d.ctx, d.state, &tdapi.SetAuthenticationPhoneNumber{PhoneNumber: phone})
	return nil
}

func (d *dispatcher) VisitWaitEncryptionKey(*tdapi.AuthorizationStateWaitEncryptionKey) error {
	d.c.send(d.ctx, d.state, &tdapi.CheckDatabaseEncryptionKey{EncryptionKey: d.c.params.EncryptionKey})
	return nil
}

func (d *dispatcher) VisitWaitTdlibParameters(*tdapi.AuthorizationStateWaitTdlibParameters) error {
	p := d.c.params
	d.c.send(d.ctx, d.state, &tdapi.SetTdlibParameters{Parameters: &tdapi.TdlibParameters{
		DatabaseDirectory:      p.DatabaseDirectory,
		UseMessageDatabase:     p.UseMessageDatabase,
		UseSecretChats:         p.UseSecretChats,
		ApiID:                  d.c.creds.APIID,
		ApiHash:                d.c.creds.APIHash,
		SystemLanguageCode:     p.SystemLanguageCode,
		DeviceModel:            p.DeviceModel,
		ApplicationVersion:     p.ApplicationVersion,
		EnableStorageOptimizer: p.EnableStorageOptimizer,
	}})
	return nil
}
