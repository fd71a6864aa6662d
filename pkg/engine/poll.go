package engine

import (
	"fmt"
	"time"

	"github.com/vango-dev/meld/pkg/protocol"
)

// syncPolls reconciles the poll timers of c with its poll elements. Timers
// of unchanged bindings keep running across rescans.
func (e *Engine) syncPolls(c *Component) {
	want := map[string]*pollTimer{}
	for _, el := range c.pollEls {
		method := el.Poll.Method
		if method == "" {
			method = DefaultPollMethod
		}
		interval := el.Poll.Interval
		if interval <= 0 {
			interval = e.cfg.PollInterval
		}
		key := fmt.Sprintf("%s@%s", method, interval)
		want[key] = &pollTimer{method: method, interval: interval}
	}

	for key, p := range c.polls {
		if _, ok := want[key]; !ok {
			p.timer.Stop()
			p.gen++
			delete(c.polls, key)
		}
	}
	for key, p := range want {
		if _, ok := c.polls[key]; ok {
			continue
		}
		c.polls[key] = p
		e.armPoll(c, p)
	}
}

func (e *Engine) armPoll(c *Component, p *pollTimer) {
	p.gen++
	gen := p.gen
	p.timer = e.cfg.Scheduler.AfterFunc(p.interval, func() {
		if gen != p.gen || e.detached(c) {
			return
		}
		e.Enqueue(c, protocol.NewCallMethod(p.method, nil, ""), Source{HasDebounce: true})
		e.armPoll(c, p)
	})
}

// PollIntervals returns the interval of each active poll of c by method.
func (c *Component) PollIntervals() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.polls))
	for _, p := range c.polls {
		out[p.method] = p.interval
	}
	return out
}
