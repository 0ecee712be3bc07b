package chat

import (
	"encoding/json"
	"time"
)

// Group event kinds carried over the broker and message types recorded on
// notifications.
const (
	EventChatMessage      = "chat_message"
	EventUserKicked       = "user_kicked"
	EventSendNotification = "send_notification"

	MsgTypeChat         = "chat_message"
	MsgTypeAnnouncement = "chat_announcement"
)

// AnnouncementPrefix tags announcement content inside ordinary chat message
// rows.
const AnnouncementPrefix = "[ANNOUNCEMENT] "

// chatTimeFormat is the fixed wall-clock format used on chat broadcasts.
const chatTimeFormat = "2006-01-02 15:04:05"

// InboundFrame is the JSON envelope clients send on the chat socket.
type InboundFrame struct {
	Message string `json:"message"`
}

// GroupEvent is the payload published to a room or notification group.
type GroupEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Username  string          `json:"username,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	UserId    int             `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ChatFrame is the outbound frame for a relayed chat message.
type ChatFrame struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// KickFrame is the outbound notice sent to the kicked user only.
type KickFrame struct {
	Type string `json:"type"`
}

// NotificationPayload is the per-recipient payload delivered on the personal
// notification group and forwarded verbatim to the client.
type NotificationPayload struct {
	Title     string `json:"title"`
	SubTitle  string `json:"sub_title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Id        int    `json:"id"`
	MsgType   string `json:"msg_type"`
	UrlLink   string `json:"url_link"`
}

func chatTimestamp(t time.Time) string {
	return t.UTC().Format(chatTimeFormat)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
