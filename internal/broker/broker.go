// Package broker provides the group-based publish/subscribe fabric used by
// the chat layer. Durability never depends on the broker: every publish is
// preceded by a database write.
package broker

import (
	"context"
	"fmt"
)

// Subscriber receives payloads published to groups it has joined. Deliver
// must not block; implementations queue and drop rather than stall the
// publisher.
type Subscriber interface {
	Deliver(group string, payload []byte)
}

type Broker interface {
	Join(group string, sub Subscriber)
	Leave(group string, sub Subscriber)
	Publish(ctx context.Context, group string, payload []byte) error
	Close() error
}

// ChatGroup names the pub/sub group for a chat room.
func ChatGroup(roomId int) string {
	return fmt.Sprintf("chat_%d", roomId)
}

// NotificationGroup names the personal notification group for a user.
func NotificationGroup(userId int) string {
	return fmt.Sprintf("notifications_%d", userId)
}
