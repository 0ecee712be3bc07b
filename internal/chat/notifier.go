package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/types"
)

// notifyRoomMembers delivers one notification per room member other than the
// sender: a durable row first, then a best-effort live push to the member's
// personal group. Kicked members are not filtered out; that matches the
// behavior this service replaces.
func (s *Service) notifyRoomMembers(ctx context.Context, room database.Room, sender types.User, body, msgType string) error {
	members, err := s.db.ListRoomMembers(room.Id)
	if err != nil {
		return fmt.Errorf("list room members: %w", err)
	}

	title := "New Message"
	if msgType == MsgTypeAnnouncement {
		title = "New Announcement"
	}
	urlLink := strconv.Itoa(room.EventId)

	// Every durable row is written before any live push, so one recipient's
	// failing push cannot cost another their notification.
	notifs := make([]database.Notification, 0, len(members))
	for _, member := range members {
		if member.UserId == sender.Id {
			continue
		}

		notif, err := s.db.CreateNotification(database.CreateNotificationParams{
			UserId:   member.UserId,
			Title:    title,
			SubTitle: room.EventName,
			Message:  body,
			MsgType:  msgType,
			UrlLink:  urlLink,
		})
		if err != nil {
			return fmt.Errorf("save notification for user %d: %w", member.UserId, err)
		}

		s.stats.Incr(stats.NotificationsFannedOut)
		notifs = append(notifs, notif)
	}

	// All rows are committed; a failed push is loud but never fatal to
	// durability, and never blocks the remaining recipients.
	var pushErr error
	for _, notif := range notifs {
		if err := s.pushNotification(ctx, notif.UserId, notif, msgType); err != nil {
			s.log.Printf("push notification for user %d: %v", notif.UserId, err)
			if pushErr == nil {
				pushErr = fmt.Errorf("push notification for user %d: %w", notif.UserId, err)
			}
		}
	}

	return pushErr
}

func (s *Service) pushNotification(ctx context.Context, userId int, notif database.Notification, msgType string) error {
	data, err := json.Marshal(NotificationPayload{
		Title:     notif.Title,
		SubTitle:  notif.SubTitle,
		Message:   notif.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Id:        notif.Id,
		MsgType:   msgType,
		UrlLink:   notif.UrlLink,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	payload, err := json.Marshal(GroupEvent{
		Type: EventSendNotification,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("encode group event: %w", err)
	}

	return s.broker.Publish(ctx, broker.NotificationGroup(userId), payload)
}
