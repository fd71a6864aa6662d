package dom

import "strings"

// ListenerID identifies an attached listener for removal.
type ListenerID uint64

// Listener handles a dispatched event.
type Listener func(*Event)

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Event is a user interaction delivered to a target node.
type Event struct {
	// Type is the event type, e.g. "input", "click", "keyup".
	Type string

	// Target is the node the event was dispatched to.
	Target NodeID

	// CurrentTarget is the node whose listeners are running.
	CurrentTarget NodeID

	// Key is the keyboard key for key events (e.g. "Enter").
	Key string

	defaultPrevented   bool
	propagationStopped bool
}

// NewEvent creates an event of the given type aimed at target.
func NewEvent(typ string, target NodeID) *Event {
	return &Event{Type: typ, Target: target}
}

// NewKeyEvent creates a keyboard event aimed at target.
func NewKeyEvent(typ string, target NodeID, key string) *Event {
	return &Event{Type: typ, Target: target, Key: key}
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops the event from bubbling past the current node.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// AddEventListener attaches fn to id for events of type typ.
func (d *Document) AddEventListener(id NodeID, typ string, fn Listener) ListenerID {
	if !d.Valid(id) || fn == nil {
		return 0
	}
	typ = strings.ToLower(typ)
	d.nextLID++
	byType := d.listeners[id]
	if byType == nil {
		byType = make(map[string][]listenerEntry)
		d.listeners[id] = byType
	}
	byType[typ] = append(byType[typ], listenerEntry{id: d.nextLID, fn: fn})
	return d.nextLID
}

// RemoveEventListener detaches a listener previously returned by
// AddEventListener.
func (d *Document) RemoveEventListener(id NodeID, lid ListenerID) {
	for typ, entries := range d.listeners[id] {
		for i, e := range entries {
			if e.id == lid {
				d.listeners[id][typ] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of listeners of type typ on id.
func (d *Document) ListenerCount(id NodeID, typ string) int {
	return len(d.listeners[id][strings.ToLower(typ)])
}

// Dispatch delivers ev to its target and bubbles it up through the ancestors.
// It returns false if a listener called PreventDefault.
func (d *Document) Dispatch(ev *Event) bool {
	ev.Type = strings.ToLower(ev.Type)
	path := []NodeID{}
	for cur := ev.Target; cur != Nil; cur = d.Parent(cur) {
		path = append(path, cur)
	}
	for _, id := range path {
		entries := d.listeners[id][ev.Type]
		if len(entries) == 0 {
			continue
		}
		ev.CurrentTarget = id
		// copy: listeners may attach or detach while running
		snapshot := append([]listenerEntry(nil), entries...)
		for _, e := range snapshot {
			e.fn(ev)
		}
		if ev.propagationStopped {
			break
		}
	}
	ev.CurrentTarget = Nil
	return !ev.defaultPrevented
}
