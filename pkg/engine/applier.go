package engine

import (
	"time"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/morph"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/telemetry"
)

// HandleResponse applies one server response.
//
// An error-flagged response aborts the round trip: its actions return to the
// front of the queue. A response for an unknown component, or one that
// arrives while newer actions are queued, is discarded and reported through
// the returned error. Otherwise the data is merged, the subtree reconciled
// and rescanned, and a held-back dispatch resumed.
func (e *Engine) HandleResponse(resp *protocol.Response) error {
	if resp.IsError() {
		return e.handleError(resp)
	}

	c := e.registry.Get(resp.ID)
	if c == nil || c.orphaned {
		e.cfg.Metrics.RoundTrip(telemetry.StatusUnknown, 0)
		e.logger.Debug("response for unknown component", "component_id", resp.ID)
		return errors.New("M031").WithDetail(resp.ID)
	}

	if len(c.queue) > 0 {
		err := errors.New("M030").WithDetailf("%s: %d actions queued", c.ID, len(c.queue))
		e.cfg.Metrics.RoundTrip(telemetry.StatusStale, 0)
		telemetry.EndRoundTrip(c.span, telemetry.StatusStale, nil)
		c.logger.Debug("stale response discarded", "queued", len(c.queue))
		e.settle(c)
		return err
	}

	c.Data = protocol.MergeData(c.Data, resp.Data)
	e.stopLoading(c)

	if resp.DOM != "" {
		if err := e.reconcile(c, resp.DOM); err != nil {
			e.cfg.Metrics.RoundTrip(telemetry.StatusError, 0)
			telemetry.EndRoundTrip(c.span, telemetry.StatusError, err)
			c.logger.Error("reconcile failed", "error", err)
			e.settle(c)
			return err
		}
	}

	var elapsed time.Duration
	if !c.sentAt.IsZero() {
		elapsed = time.Since(c.sentAt)
	}
	e.cfg.Metrics.RoundTrip(telemetry.StatusApplied, elapsed)
	telemetry.EndRoundTrip(c.span, telemetry.StatusApplied, nil)
	e.settle(c)
	if resp.DOM != "" {
		e.Prune()
	}
	return nil
}

func (e *Engine) handleError(resp *protocol.Response) error {
	err := errors.New("M020").WithDetail(resp.Error)
	e.cfg.Metrics.RoundTrip(telemetry.StatusError, 0)

	var affected []*Component
	if resp.ID != "" {
		if c := e.registry.Get(resp.ID); c != nil {
			affected = append(affected, c)
		}
	} else {
		for _, c := range e.registry.All() {
			if c.inFlight {
				affected = append(affected, c)
			}
		}
	}
	for _, c := range affected {
		telemetry.EndRoundTrip(c.span, telemetry.StatusError, err)
		c.logger.Error("server returned an error", "error", resp.Error)
		e.abort(c)
	}
	if len(affected) == 0 {
		e.logger.Error("server returned an error", "component_id", resp.ID, "error", resp.Error)
	}
	return err
}

// reconcile morphs the subtree of c to markup and rescans it. Listener
// callbacks for c are ignored while the tree is being changed.
func (e *Engine) reconcile(c *Component, markup string) error {
	c.reconciling = true
	defer func() { c.reconciling = false }()

	newRoot, stats, err := morph.ReconcileStats(e.doc, c.root, markup, e.keyOf, skipEqual)
	if err != nil {
		return errors.New("M022").WithDetail(c.ID).Wrap(err)
	}
	c.root = newRoot
	e.cfg.Metrics.Reconciled(stats.Updated, stats.Inserted, stats.Removed, stats.Moved, stats.Skipped)
	c.logger.Debug("reconciled",
		"updated", stats.Updated,
		"inserted", stats.Inserted,
		"removed", stats.Removed,
		"moved", stats.Moved)

	e.scan(c)
	return nil
}

// keyOf matches nodes by their key attribute, else by id.
func (e *Engine) keyOf(d *dom.Document, id dom.NodeID) string {
	if k, ok := d.Attr(id, e.attr("key")); ok && k != "" {
		return k
	}
	return d.ElementID(id)
}

func skipEqual(d *dom.Document, from, to dom.NodeID) bool {
	return d.IsEqualNode(from, to)
}
