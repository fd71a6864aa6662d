package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/transport"
)

// Engine keeps the components of one document in sync with the remote
// process behind a Transport.
//
// All component state is owned by a single loop. Run starts it; Do and
// Dispatch hand work to it from other goroutines. Every other method must be
// called from the loop, or from the goroutine that owns the engine when no
// loop is running (as tests do with a ManualScheduler).
type Engine struct {
	doc       *dom.Document
	transport transport.Transport
	registry  *Registry
	cfg       Config
	logger    *slog.Logger

	tasks   chan func()
	quit    chan struct{}
	closed  sync.Once
	running atomic.Bool
	ctx     context.Context
}

// New creates an engine for doc. Components are mounted with Mount or
// MountAll.
func New(doc *dom.Document, tr transport.Transport, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = binding.DefaultPrefix
	}
	if cfg.TaskBuffer <= 0 {
		cfg.TaskBuffer = DefaultTaskBuffer
	}
	e := &Engine{
		doc:       doc,
		transport: tr,
		registry:  NewRegistry(),
		cfg:       cfg,
		logger:    cfg.Logger,
		tasks:     make(chan func(), cfg.TaskBuffer),
		quit:      make(chan struct{}),
		ctx:       context.Background(),
	}
	if e.cfg.Scheduler == nil {
		e.cfg.Scheduler = loopScheduler{e: e}
	}
	return e
}

// Document returns the engine's document.
func (e *Engine) Document() *dom.Document { return e.doc }

// Registry returns the component registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Prefix returns the attribute prefix.
func (e *Engine) Prefix() string { return e.cfg.Prefix }

func (e *Engine) attr(name string) string { return e.cfg.Prefix + name }

// Mount registers the component whose root carries id and scans it.
func (e *Engine) Mount(id string) (*Component, error) {
	root := e.doc.FindByAttr(e.doc.Root(), e.attr("id"), id)
	if root == dom.Nil {
		return nil, errors.New("M001").WithDetail(id).
			WithSuggestion(fmt.Sprintf("Add %s%q to the component's root element.", e.attr("id")+"=", id))
	}
	return e.mountRoot(id, root)
}

// MountAll mounts every root in the document that is not yet registered.
func (e *Engine) MountAll() ([]*Component, error) {
	var mounted []*Component
	for _, root := range e.doc.FindAllWithAttr(e.doc.Root(), e.attr("id")) {
		id, _ := e.doc.Attr(root, e.attr("id"))
		if e.registry.Get(id) != nil {
			continue
		}
		c, err := e.mountRoot(id, root)
		if err != nil {
			return mounted, err
		}
		mounted = append(mounted, c)
	}
	return mounted, nil
}

func (e *Engine) mountRoot(id string, root dom.NodeID) (*Component, error) {
	if e.registry.Get(id) != nil {
		return nil, errors.New("M002").WithDetail(id)
	}
	qualifier := e.doc.AttrOr(root, e.attr("name"), id)

	var data map[string]any
	if raw, ok := e.doc.Attr(root, e.attr("data")); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, errors.New("M003").WithDetail(id).Wrap(err)
		}
	}

	c := newComponent(id, qualifier, root, data, e.logger)
	if err := e.registry.Add(c); err != nil {
		return nil, err
	}
	e.scan(c)
	e.cfg.Metrics.SetComponents(e.registry.Len())
	c.logger.Info("component mounted", "name", c.Name, "elements", len(c.elements))
	return c, nil
}

// Component returns the registered component with id, or nil.
func (e *Engine) Component(id string) *Component {
	return e.registry.Get(id)
}

// Components returns the registered components in mount order.
func (e *Engine) Components() []*Component {
	return e.registry.All()
}

// Inspect returns a view of every component.
func (e *Engine) Inspect(withMarkup bool) []Info {
	all := e.registry.All()
	out := make([]Info, 0, len(all))
	for _, c := range all {
		out = append(out, c.info(e.doc, withMarkup))
	}
	return out
}

// InspectComponent returns a view of one component.
func (e *Engine) InspectComponent(id string, withMarkup bool) (Info, error) {
	c := e.registry.Get(id)
	if c == nil {
		return Info{}, errors.New("M031").WithDetail(id)
	}
	return c.info(e.doc, withMarkup), nil
}

// Prune drops components whose root has left the document and stops their
// timers. Responses for pruned components are discarded.
func (e *Engine) Prune() []string {
	var ids []string
	for _, c := range e.registry.Prune(e.doc) {
		e.stopTimers(c)
		e.detachListeners(c)
		ids = append(ids, c.ID)
		c.logger.Info("component pruned")
	}
	if len(ids) > 0 {
		e.cfg.Metrics.SetComponents(e.registry.Len())
	}
	return ids
}

// detached reports whether c can no longer act, pruning it and every other
// disconnected component when its root has left the document.
func (e *Engine) detached(c *Component) bool {
	if c.orphaned {
		return true
	}
	if e.doc.IsConnected(c.root) {
		return false
	}
	e.Prune()
	return true
}

func (e *Engine) stopTimers(c *Component) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	for key, p := range c.polls {
		p.timer.Stop()
		delete(c.polls, key)
	}
}

// Run processes tasks, timer callbacks and transport responses until ctx is
// done or the transport closes.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: already running")
	}
	defer e.running.Store(false)
	e.ctx = ctx

	responses := e.transport.Responses()
	for {
		select {
		case fn := <-e.tasks:
			e.execute(fn)

		case resp, ok := <-responses:
			if !ok {
				e.logger.Warn("transport closed")
				return transport.ErrClosed
			}
			e.execute(func() {
				if err := e.HandleResponse(resp); err != nil {
					e.logger.Debug("response not applied", "error", err)
				}
			})

		case <-e.quit:
			return nil

		case <-ctx.Done():
			for _, c := range e.registry.All() {
				e.stopTimers(c)
			}
			return ctx.Err()
		}
	}
}

// execute runs fn with panic recovery.
func (e *Engine) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("loop panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop. It never blocks; when the queue is
// full the function is discarded and false is returned.
func (e *Engine) Dispatch(fn func()) bool {
	select {
	case e.tasks <- fn:
		return true
	case <-e.quit:
		return false
	default:
		e.logger.Warn("task queue full, discarding callback")
		return false
	}
}

// post queues fn, blocking until there is room or the engine closes.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.quit:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case e.tasks <- task:
	case <-e.quit:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Run and closes the transport.
func (e *Engine) Close() error {
	e.closed.Do(func() { close(e.quit) })
	return e.transport.Close()
}
