package broker

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker. It is the default for single-node
// deployments and the test double for the chat layer.
type MemoryBroker struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		groups: make(map[string]map[Subscriber]struct{}),
	}
}

func (b *MemoryBroker) Join(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if b.groups[group] == nil {
		b.groups[group] = make(map[Subscriber]struct{})
	}
	b.groups[group][sub] = struct{}{}
}

func (b *MemoryBroker) Leave(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.groups[group]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.groups, group)
		}
	}
}

// Publish delivers the payload to every current member of the group in the
// caller's goroutine, preserving the per-room write-then-publish ordering.
func (b *MemoryBroker) Publish(_ context.Context, group string, payload []byte) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.groups[group]))
	for sub := range b.groups[group] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Deliver(group, payload)
	}

	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.groups = make(map[string]map[Subscriber]struct{})
	b.closed = true
	return nil
}
