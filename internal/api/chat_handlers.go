package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/eventsphere/eventsphere/internal/chat"
	"github.com/eventsphere/eventsphere/internal/types"
)

const defaultHistoryLimit = 50

type AnnouncementRequest struct {
	Content string `json:"content"`
}

func statusSuccess() map[string]string {
	return map[string]string{"status": "success"}
}

// chatApiError maps chat service errors onto the HTTP responses the room
// endpoints return.
func (s *EventSphereApp) chatApiError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound):
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
	case errors.Is(err, chat.ErrNoTicket), errors.Is(err, chat.ErrKicked), errors.Is(err, chat.ErrNotMember):
		s.writeJson(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, chat.ErrNotCreator):
		s.writeJson(w, http.StatusForbidden, map[string]string{"error": "You are not authorized to make announcements."})
	default:
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *EventSphereApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.chatSvc.Join(r.Context(), eventId, user)
	if err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *EventSphereApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chatSvc.Leave(r.Context(), roomId, user.Id); err != nil {
		s.chatApiError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *EventSphereApp) roomMessages(w http.ResponseWriter, r *http.Request) {
	if _, errResp := s.currentUser(r.Context()); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	msgs, err := s.chatSvc.History(r.Context(), roomId, limit)
	if err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, msgs)
}

func (s *EventSphereApp) roomMembers(w http.ResponseWriter, r *http.Request) {
	if _, errResp := s.currentUser(r.Context()); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members, err := s.chatSvc.Members(r.Context(), roomId)
	if err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, members)
}

func (s *EventSphereApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	content := r.PostFormValue("content")
	if content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chatSvc.PostMessage(r.Context(), roomId, user, content); err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, statusSuccess())
}

func (s *EventSphereApp) makeAnnouncement(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chatSvc.PostAnnouncement(r.Context(), roomId, user, req.Content); err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, statusSuccess())
}

func (s *EventSphereApp) kickMember(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := pathInt(r, "userId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chatSvc.Kick(r.Context(), roomId, user, targetId); err != nil {
		s.chatApiError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, statusSuccess())
}

func (s *EventSphereApp) listNotifications(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	dbNotifs, err := s.db.ListNotifications(user.Id, unreadOnly)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notifs := make([]types.Notification, 0, len(dbNotifs))
	for _, n := range dbNotifs {
		notifs = append(notifs, types.Notification{
			Id:        n.Id,
			UserId:    n.UserId,
			Title:     n.Title,
			SubTitle:  n.SubTitle,
			Message:   n.Message,
			MsgType:   n.MsgType,
			UrlLink:   n.UrlLink,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, notifs)
}

func (s *EventSphereApp) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notifId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.MarkNotificationRead(user.Id, notifId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, statusSuccess())
}

func (s *EventSphereApp) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.MarkAllNotificationsRead(user.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, statusSuccess())
}

func (s *EventSphereApp) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
		},
	}
}

func (s *EventSphereApp) serveChatWs(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathInt(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	facts, err := s.chatSvc.AuthorizeConnect(roomId, user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("upgrade chat connection: %v", err)
		return
	}

	session := chat.NewChatSession(conn, user, roomId, s.chatSvc, s.broker, s.cs, s.log, s.stats)
	if !session.Start(facts) {
		s.log.Printf("rejected chat connection for user %d in room %d", user.Id, roomId)
	}
}

func (s *EventSphereApp) serveNotificationsWs(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("upgrade notification connection: %v", err)
		return
	}

	chat.NewNotificationSession(conn, user, s.broker, s.cs, s.log, s.stats).Start()
}
