package broker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// RedisBroker fans group publishes out across processes using Redis
// PUBLISH/SUBSCRIBE. Local subscribers are tracked per group; the broker
// holds one Redis subscription per group with at least one local member.
type RedisBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    *log.Logger

	mu     sync.Mutex
	groups map[string]map[Subscriber]struct{}

	done chan struct{}
}

func NewRedisBroker(addr, password string, db int, logger *log.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	b := &RedisBroker{
		client: client,
		pubsub: client.Subscribe(context.Background()),
		log:    logger,
		groups: make(map[string]map[Subscriber]struct{}),
		done:   make(chan struct{}),
	}

	go b.receive()

	return b, nil
}

func (b *RedisBroker) receive() {
	ch := b.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.dispatch(msg.Channel, []byte(msg.Payload))
		case <-b.done:
			return
		}
	}
}

func (b *RedisBroker) dispatch(group string, payload []byte) {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.groups[group]))
	for sub := range b.groups[group] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Deliver(group, payload)
	}
}

func (b *RedisBroker) Join(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.groups[group] == nil {
		b.groups[group] = make(map[Subscriber]struct{})
		if err := b.pubsub.Subscribe(context.Background(), group); err != nil {
			b.log.Printf("redis subscribe %q: %v", group, err)
		}
	}
	b.groups[group][sub] = struct{}{}
}

func (b *RedisBroker) Leave(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.groups[group]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.groups, group)
		if err := b.pubsub.Unsubscribe(context.Background(), group); err != nil {
			b.log.Printf("redis unsubscribe %q: %v", group, err)
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, group string, payload []byte) error {
	return b.client.Publish(ctx, group, payload).Err()
}

func (b *RedisBroker) Close() error {
	close(b.done)
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	return b.client.Close()
}
