// Package memory provides an in-memory publisher for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Message is one published payload captured for inspection.
type Message struct {
	Topic   string
	Payload map[string]any
}

// Publisher records published messages in-memory.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	nextID   int
}

// New creates an in-memory publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload map[string]any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	p.nextID++
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Close is a no-op.
func (*Publisher) Close() error {
	return nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
