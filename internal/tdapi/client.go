package tdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tgrecorder/internal/config"
)

// sendFailedCode is the code of the synthetic Error delivered when a request never
// reached the bridge.
const sendFailedCode = 500

// StateFunc receives authorization state updates. A non-nil error stops Run.
type StateFunc func(ctx context.Context, st AuthorizationState) error

type inbound struct {
	obj   Object
	extra string
}

// Client talks to a tdjson HTTP bridge. Responses and updates are delivered one at a time
// on the goroutine that calls Run.
type Client struct {
	cfg config.Config
	cli *http.Client
	log *log.Logger

	mu      sync.Mutex
	pending map[string]ResponseHandler
	local   []inbound
	wake    chan struct{}
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		cli:     &http.Client{},
		log:     log.Default(),
		pending: make(map[string]ResponseHandler),
		wake:    make(chan struct{}, 1),
	}
}

// SetLogger replaces the diagnostic logger.
func (c *Client) SetLogger(l *log.Logger) {
	if l != nil {
		c.log = l
	}
}

// Pending reports how many requests are still waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Send posts fn to the bridge. h is called exactly once from Run: with the bridge's
// response, or with an *Error if the request could not be delivered.
func (c *Client) Send(ctx context.Context, fn Function, h ResponseHandler) {
	extra := uuid.NewString()
	if h != nil {
		c.mu.Lock()
		c.pending[extra] = h
		c.mu.Unlock()
	}
	if err := c.post(ctx, fn, extra); err != nil {
		c.log.Printf("tdjson send %s: %v", fn.Type(), err)
		c.enqueue(inbound{obj: &Error{Code: sendFailedCode, Message: err.Error()}, extra: extra})
	}
}

func (c *Client) post(ctx context.Context, fn Function, extra string) error {
	body, err := Encode(fn, extra)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.HTTPTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.GatewayBase, "/") + "/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if bearer := strings.TrimSpace(c.cfg.GatewayAuthBearer); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

func (c *Client) enqueue(in inbound) {
	c.mu.Lock()
	c.local = append(c.local, in)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) popLocal() (inbound, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.local) == 0 {
		return inbound{}, false
	}
	in := c.local[0]
	c.local = c.local[1:]
	return in, true
}

// Run long-polls the bridge and dispatches everything it receives until ctx ends or
// onState returns an error.
func (c *Client) Run(ctx context.Context, onState StateFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	remote := make(chan inbound, 64)
	go c.receive(ctx, remote)

	for {
		if in, ok := c.popLocal(); ok {
			if err := c.dispatch(ctx, in, onState); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		case in := <-remote:
			if err := c.dispatch(ctx, in, onState); err != nil {
				return err
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, in inbound, onState StateFunc) error {
	if in.extra != "" {
		c.mu.Lock()
		h, ok := c.pending[in.extra]
		delete(c.pending, in.extra)
		c.mu.Unlock()
		if ok {
			return h(ctx, in.obj)
		}
	}

	if upd, ok := in.obj.(*UpdateAuthorizationState); ok {
		return onState(ctx, upd.AuthorizationState)
	}
	return nil
}

func (c *Client) receive(ctx context.Context, out chan<- inbound) {
	for ctx.Err() == nil {
		objs, err := c.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Printf("tdjson receive: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, in := range objs {
			select {
			case <-ctx.Done():
				return
			case out <- in:
			}
		}
	}
}

func (c *Client) poll(ctx context.Context) ([]inbound, error) {
	wait := time.Duration(c.cfg.PollTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, wait+time.Duration(c.cfg.HTTPTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.GatewayBase, "/") + "/receive"
	q := url.Values{"timeout": {strconv.Itoa(c.cfg.PollTimeoutSeconds)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	objs := make([]inbound, 0, len(raw))
	for _, r := range raw {
		obj, extra, err := Decode(r)
		if err != nil {
			c.log.Printf("tdjson skip object: %v", err)
			continue
		}
		objs = append(objs, inbound{obj: obj, extra: extra})
	}
	return objs, nil
}
