package engine

import (
	"context"
	"time"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/telemetry"
)

// Source describes the binding that produced an action.
type Source struct {
	// Defer coalesces a SyncInput with a queued one of the same name.
	Defer bool

	// Debounce overrides the engine default when HasDebounce is set.
	Debounce    time.Duration
	HasDebounce bool
}

func (s Source) debounce(def time.Duration) time.Duration {
	if s.HasDebounce {
		return s.Debounce
	}
	return def
}

// Enqueue adds a to the queue of c and schedules a dispatch.
//
// A deferred SyncInput whose name is already queued overwrites the queued
// value in place and schedules nothing.
func (e *Engine) Enqueue(c *Component, a protocol.Action, src Source) {
	if src.Defer {
		if in, ok := a.SyncInput(); ok {
			for _, queued := range c.queue {
				if q, ok := queued.SyncInput(); ok && q.Name == in.Name {
					q.Value = in.Value
					e.cfg.Metrics.ActionCoalesced()
					return
				}
			}
		}
	}
	c.queue = append(c.queue, a)
	e.cfg.Metrics.ActionQueued(string(a.Type()))
	e.scheduleDispatch(c, src.debounce(e.cfg.Debounce))
}

// Call enqueues a method call on component id and dispatches it without
// debounce.
func (e *Engine) Call(id, method string, args ...any) error {
	c := e.registry.Get(id)
	if c == nil {
		return errors.New("M031").WithDetail(id)
	}
	e.Enqueue(c, protocol.NewCallMethod(method, args, ""), Source{HasDebounce: true})
	return nil
}

// scheduleDispatch restarts the dispatch timer of c. Only the last call in a
// debounce window fires.
func (e *Engine) scheduleDispatch(c *Component, d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = e.cfg.Scheduler.AfterFunc(d, func() {
		if gen != c.timerGen {
			return
		}
		c.timer = nil
		e.fire(c)
	})
}

func (e *Engine) fire(c *Component) {
	if e.detached(c) {
		return
	}
	if c.inFlight {
		c.pendingDispatch = true
		e.cfg.Metrics.DispatchDelayed()
		return
	}
	e.dispatch(c)
}

// dispatch sends the queue of c. The queue is snapshotted into the in-flight
// set and cleared; an empty queue is not sent.
func (e *Engine) dispatch(c *Component) {
	c.pendingDispatch = false
	if len(c.queue) == 0 {
		return
	}

	actions := c.queue
	c.queue = nil
	c.inFlightActions = actions
	c.inFlight = true
	c.sentAt = time.Now()

	req := &protocol.Request{
		ID:            c.ID,
		ComponentName: c.Name,
		Data:          protocol.CloneData(c.Data),
		ActionQueue:   actions,
	}
	_, c.span = e.cfg.Tracer.StartRoundTrip(e.ctx, c.ID, c.Name, len(actions))
	e.startLoading(c, actions)

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.SendTimeout)
	err := e.transport.Send(ctx, req)
	cancel()
	if err != nil {
		e.cfg.Metrics.TransportError(err)
		c.logger.Warn("send failed, actions requeued",
			"actions", len(actions),
			"error", err)
		telemetry.EndRoundTrip(c.span, telemetry.StatusError, err)
		e.abort(c)
		return
	}
	e.cfg.Metrics.Dispatched()
	c.logger.Debug("dispatched", "actions", len(actions))
}

// abort ends the in-flight round trip of c without applying it. The
// unacknowledged actions go back to the front of the queue and are not
// re-dispatched until the next enqueue.
func (e *Engine) abort(c *Component) {
	if len(c.inFlightActions) > 0 {
		c.queue = append(append([]protocol.Action(nil), c.inFlightActions...), c.queue...)
	}
	c.inFlightActions = nil
	c.inFlight = false
	c.pendingDispatch = false
	c.span = nil
	e.stopLoading(c)
}

// settle ends the in-flight round trip of c and resumes a dispatch that was
// held back while it was in flight.
func (e *Engine) settle(c *Component) {
	c.inFlightActions = nil
	c.inFlight = false
	c.span = nil
	e.stopLoading(c)
	if c.pendingDispatch {
		e.dispatch(c)
	}
}
