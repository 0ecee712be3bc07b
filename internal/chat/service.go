package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/types"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotMember    = errors.New("not a member of this room")
	ErrKicked       = errors.New("member has been kicked from this room")
	ErrNotCreator   = errors.New("only the room creator may perform this action")
	ErrNoTicket     = errors.New("a ticket is required to join this room")
)

// Service implements the chat room operations shared by the websocket relay
// and the HTTP actions: join, leave, send, announce, kick.
type Service struct {
	db     database.EventSphereRepository
	broker broker.Broker
	stats  stats.StatsProvider
	log    *log.Logger
}

func NewService(db database.EventSphereRepository, b broker.Broker, sp stats.StatsProvider, logger *log.Logger) *Service {
	return &Service{
		db:     db,
		broker: b,
		stats:  sp,
		log:    logger,
	}
}

// AuthorizeConnect resolves the authorization facts for a websocket
// connection attempt. The connection machine decides from these facts alone.
func (s *Service) AuthorizeConnect(roomId, userId int) (ConnectFacts, error) {
	_, err := s.db.GetRoomById(roomId)
	if errors.Is(err, sql.ErrNoRows) {
		return ConnectFacts{}, nil
	}
	if err != nil {
		return ConnectFacts{}, fmt.Errorf("get room: %w", err)
	}

	facts := ConnectFacts{RoomFound: true, RoomId: roomId}

	member, err := s.db.GetRoomMember(roomId, userId)
	if errors.Is(err, sql.ErrNoRows) {
		return facts, nil
	}
	if err != nil {
		return ConnectFacts{}, fmt.Errorf("get room member: %w", err)
	}

	facts.Member = true
	facts.IsKicked = member.IsKicked
	return facts, nil
}

// Join makes the caller a member of the event's room. Eligibility requires a
// ticket for the event or being its creator. A kicked member cannot rejoin;
// leaving and rejoining with a valid ticket produces a fresh row.
func (s *Service) Join(ctx context.Context, eventId int, user types.User) (types.Room, error) {
	dbRoom, err := s.db.GetRoomByEventId(eventId)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("get room: %w", err)
	}

	room := types.Room{
		Id:        dbRoom.Id,
		EventId:   dbRoom.EventId,
		EventName: dbRoom.EventName,
		CreatorId: dbRoom.CreatorId,
		CreatedAt: dbRoom.CreatedAt,
	}

	member, err := s.db.GetRoomMember(dbRoom.Id, user.Id)
	if err == nil {
		if member.IsKicked {
			return types.Room{}, ErrKicked
		}
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, fmt.Errorf("get room member: %w", err)
	}

	if dbRoom.CreatorId != user.Id {
		hasTicket, err := s.db.HasTicket(user.Id, eventId)
		if err != nil {
			return types.Room{}, fmt.Errorf("check ticket: %w", err)
		}
		if !hasTicket {
			return types.Room{}, ErrNoTicket
		}
	}

	if _, err := s.db.CreateRoomMember(dbRoom.Id, user.Id); err != nil {
		return types.Room{}, fmt.Errorf("create room member: %w", err)
	}

	return room, nil
}

// Leave removes the caller's member row. Leaving is distinct from a kick:
// the row is deleted and a later rejoin is allowed.
func (s *Service) Leave(ctx context.Context, roomId, userId int) error {
	if _, err := s.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("get room: %w", err)
	}

	if err := s.db.DeleteRoomMember(roomId, userId); err != nil {
		return fmt.Errorf("delete room member: %w", err)
	}

	return nil
}

// PostMessage persists the message, fans out notifications and broadcasts to
// the room group, strictly in that order. A broadcast failure after the
// write is surfaced but never undoes the committed row.
func (s *Service) PostMessage(ctx context.Context, roomId int, sender types.User, content string) error {
	room, err := s.db.GetRoomById(roomId)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	member, err := s.db.GetRoomMember(roomId, sender.Id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("get room member: %w", err)
	}
	if member.IsKicked {
		return ErrKicked
	}

	now := Now()
	if _, err := s.db.CreateMessage(database.Message{
		RoomId:    roomId,
		UserId:    sender.Id,
		Content:   content,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	s.stats.Incr(stats.MessagesRelayed)

	if err := s.notifyRoomMembers(ctx, room, sender, content, MsgTypeChat); err != nil {
		return err
	}

	payload, err := json.Marshal(GroupEvent{
		Type:      EventChatMessage,
		Message:   content,
		Username:  sender.Username,
		Timestamp: chatTimestamp(now),
	})
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	if err := s.broker.Publish(ctx, broker.ChatGroup(roomId), payload); err != nil {
		return fmt.Errorf("broadcast message: %w", err)
	}

	return nil
}

// PostAnnouncement persists a creator announcement and fans out
// notifications. Announcements deliberately skip the live chat broadcast;
// members receive them on the notification path.
func (s *Service) PostAnnouncement(ctx context.Context, roomId int, sender types.User, content string) error {
	room, err := s.db.GetRoomById(roomId)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	if room.CreatorId != sender.Id {
		return ErrNotCreator
	}

	if _, err := s.db.CreateMessage(database.Message{
		RoomId:    roomId,
		UserId:    sender.Id,
		Content:   AnnouncementPrefix + content,
		CreatedAt: Now(),
	}); err != nil {
		return fmt.Errorf("save announcement: %w", err)
	}

	s.stats.Incr(stats.AnnouncementsSent)

	return s.notifyRoomMembers(ctx, room, sender, content, MsgTypeAnnouncement)
}

// Kick sets the target's sticky kicked flag and publishes the kick to the
// room group so the target's live connection closes itself.
func (s *Service) Kick(ctx context.Context, roomId int, caller types.User, targetId int) error {
	room, err := s.db.GetRoomById(roomId)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	if room.CreatorId != caller.Id {
		return ErrNotCreator
	}

	if err := s.db.KickRoomMember(roomId, targetId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotMember
		}
		return fmt.Errorf("kick member: %w", err)
	}

	s.stats.Incr(stats.MembersKicked)

	payload, err := json.Marshal(GroupEvent{
		Type:   EventUserKicked,
		UserId: targetId,
	})
	if err != nil {
		return fmt.Errorf("encode kick event: %w", err)
	}

	if err := s.broker.Publish(ctx, broker.ChatGroup(roomId), payload); err != nil {
		return fmt.Errorf("broadcast kick: %w", err)
	}

	return nil
}

// History returns the room's recent messages in ascending timestamp order.
func (s *Service) History(ctx context.Context, roomId, limit int) ([]types.Message, error) {
	if _, err := s.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	dbMsgs, err := s.db.GetMessages(roomId, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	msgs := make([]types.Message, 0, len(dbMsgs))
	for _, m := range dbMsgs {
		msgs = append(msgs, types.Message{
			Id:        m.Id,
			RoomId:    m.RoomId,
			UserId:    m.UserId,
			Username:  m.Username,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	return msgs, nil
}

// Members lists every member of the room, kicked or not.
func (s *Service) Members(ctx context.Context, roomId int) ([]types.Member, error) {
	if _, err := s.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	dbMembers, err := s.db.ListRoomMembers(roomId)
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}

	members := make([]types.Member, 0, len(dbMembers))
	for _, m := range dbMembers {
		members = append(members, types.Member{
			Id:       m.Id,
			RoomId:   m.RoomId,
			UserId:   m.UserId,
			Username: m.Username,
			IsKicked: m.IsKicked,
			JoinedAt: m.JoinedAt,
		})
	}

	return members, nil
}
