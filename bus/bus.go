// Package bus defines the origin-tagged publish/subscribe channel the legacy
// challenge uses to talk to the bank frame, and an in-process implementation.
package bus

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrChannelClosed is returned by Emit and Deliver after Teardown.
var ErrChannelClosed = errors.New("bus: channel closed")

// Message is one event received on a channel. Origin identifies the sender
// and must be checked before Payload is trusted.
type Message struct {
	Event   string
	Origin  string
	Payload json.RawMessage
}

// Reply answers the sender of a message.
type Reply func(payload any) error

// Handler receives messages for one event name. reply is never nil.
type Handler func(msg Message, reply Reply)

// Channel is a named, exclusive conversation with one peer.
type Channel interface {
	ID() string
	On(event string, h Handler)
	Emit(event string, payload any) error
	Teardown()
}

// Bus creates channels.
type Bus interface {
	Channel(id string) Channel
}

// Memory is an in-process Bus. Peers are simulated with Deliver and Listen.
type Memory struct {
	mu       sync.Mutex
	channels map[string]*memoryChannel
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{channels: make(map[string]*memoryChannel)}
}

// Channel returns the channel named id, creating it when needed. A channel
// that was torn down is replaced by a fresh one.
func (m *Memory) Channel(id string) Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[id]; ok && !ch.isClosed() {
		return ch
	}
	ch := &memoryChannel{id: id, handlers: make(map[string][]Handler), owner: m}
	m.channels[id] = ch
	return ch
}

// Open reports whether a live channel named id exists.
func (m *Memory) Open(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	return ok && !ch.isClosed()
}

// Deliver sends msg to the handlers of channel id as if it came from a peer.
// Replies are passed to reply, which may be nil.
func (m *Memory) Deliver(id string, msg Message, reply Reply) error {
	m.mu.Lock()
	ch, ok := m.channels[id]
	m.mu.Unlock()
	if !ok || ch.isClosed() {
		return ErrChannelClosed
	}
	if reply == nil {
		reply = func(any) error { return nil }
	}
	for _, h := range ch.handlersFor(msg.Event) {
		h(msg, reply)
	}
	return nil
}

// Listen registers fn to observe everything emitted on channel id.
func (m *Memory) Listen(id string, fn func(Message)) {
	ch := m.Channel(id).(*memoryChannel)
	ch.mu.Lock()
	ch.listeners = append(ch.listeners, fn)
	ch.mu.Unlock()
}

func (m *Memory) forget(ch *memoryChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channels[ch.id] == ch {
		delete(m.channels, ch.id)
	}
}

type memoryChannel struct {
	id    string
	owner *Memory

	mu        sync.Mutex
	closed    bool
	handlers  map[string][]Handler
	listeners []func(Message)
}

func (c *memoryChannel) ID() string { return c.id }

func (c *memoryChannel) On(event string, h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *memoryChannel) Emit(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	listeners := append([]func(Message){}, c.listeners...)
	c.mu.Unlock()

	msg := Message{Event: event, Payload: raw}
	for _, fn := range listeners {
		fn(msg)
	}
	return nil
}

func (c *memoryChannel) Teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.handlers = nil
	c.listeners = nil
	c.mu.Unlock()
	c.owner.forget(c)
}

func (c *memoryChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *memoryChannel) handlersFor(event string) []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Handler(nil), c.handlers[event]...)
}

// ReplyJSON adapts fn so that a reply payload is marshaled before delivery.
func ReplyJSON(fn func(json.RawMessage)) Reply {
	return func(payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		fn(raw)
		return nil
	}
}
