package auth

import (
	"context"
	"fmt"
	"strconv"

	"tgrecorder/internal/tdapi"
)

// correlatedHandler ties a response to the epoch that was current when its request
// was sent and to the state that produced the request.
type correlatedHandler struct {
	c     *Coordinator
	epoch uint64
	state tdapi.AuthorizationState
}

func (c *Coordinator) wrap(st tdapi.AuthorizationState) *correlatedHandler {
	return &correlatedHandler{c: c, epoch: c.epoch.Load(), state: st}
}

// live reports whether no state update has arrived since the request was sent.
func (h *correlatedHandler) live() bool {
	return h.epoch == h.c.epoch.Load()
}

func (h *correlatedHandler) handle(ctx context.Context, obj tdapi.Object) error {
	if !h.live() {
		h.c.log.Printf("auth: drop stale %s response (epoch %d, now %d)", obj.Type(), h.epoch, h.c.epoch.Load())
		h.c.emit(ctx, Event{Epoch: h.epoch, State: h.state.Type(), Kind: EventStale, Detail: obj.Type()})
		return nil
	}
	return h.c.onQueryResult(ctx, h, obj)
}

// onQueryResult retries the step that produced an Error. Other payloads need nothing:
// the engine follows a successful step with a new state update.
func (c *Coordinator) onQueryResult(ctx context.Context, h *correlatedHandler, obj tdapi.Object) error {
	e, ok := obj.(*tdapi.Error)
	if !ok {
		return nil
	}

	fmt.Fprint(c.out, "Error: "+e.String())
	c.log.Printf("auth: %s rejected: %v", h.state.Type(), e)
	c.emit(ctx, Event{
		Epoch:  h.epoch,
		State:  h.state.Type(),
		Kind:   EventAuthError,
		Detail: strconv.Itoa(int(e.Code)) + " " + e.Message,
	})

	if err := c.retry.Wait(ctx); err != nil {
		return err
	}
	return c.HandleState(ctx, h.state)
}
