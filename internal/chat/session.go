package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// ChatSession owns one websocket connection to a chat room. It is the effect
// interpreter for the connection machine: broker membership, persistence via
// the service, and frames to the client.
type ChatSession struct {
	conn    *websocket.Conn
	user    types.User
	roomId  int
	machine *Machine
	svc     *Service
	broker  broker.Broker
	cs      *ChatServer
	log     *log.Logger
	stats   stats.StatsProvider

	// machineMu serializes machine steps: the read pump and broker
	// publishers all feed events into the same machine.
	machineMu sync.Mutex

	// running is set while applying AcceptEffect, before the session joins
	// the broker group, so shutdown always leaves the connection close to
	// the write pump once frames can be queued.
	running bool

	send      chan []byte
	stop      chan struct{}
	closeOnce sync.Once
}

func NewChatSession(conn *websocket.Conn, user types.User, roomId int, svc *Service, b broker.Broker, cs *ChatServer, logger *log.Logger, sp stats.StatsProvider) *ChatSession {
	return &ChatSession{
		conn:    conn,
		user:    user,
		roomId:  roomId,
		machine: NewMachine(user.Id),
		svc:     svc,
		broker:  b,
		cs:      cs,
		log:     logger,
		stats:   sp,
		send:    make(chan []byte, 256),
		stop:    make(chan struct{}),
	}
}

// Start runs the connect transition. Acceptance registers the session and
// starts the pumps before the broker group is joined; rejection closes the
// connection without any frame sent.
func (s *ChatSession) Start(facts ConnectFacts) bool {
	s.apply(s.step(ConnEvent{Connect: &facts}))

	return s.joined()
}

func (s *ChatSession) step(ev ConnEvent) []Effect {
	s.machineMu.Lock()
	defer s.machineMu.Unlock()
	return s.machine.Step(ev)
}

func (s *ChatSession) joined() bool {
	s.machineMu.Lock()
	defer s.machineMu.Unlock()
	return s.machine.State() == StateJoined
}

// Deliver implements broker.Subscriber for the room group.
func (s *ChatSession) Deliver(group string, payload []byte) {
	var ev GroupEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.Printf("chat session: bad group payload on %q: %v", group, err)
		return
	}

	s.apply(s.step(ConnEvent{Group: &ev}))
}

func (s *ChatSession) apply(effects []Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case AcceptEffect:
			s.running = true
			s.cs.register(s)
			s.stats.Incr(stats.ActiveChatConnections)
			go s.writePump()
			go s.readPump()
		case JoinGroupEffect:
			s.broker.Join(e.Group, s)
		case RelayEffect:
			if err := s.svc.PostMessage(context.Background(), s.roomId, s.user, e.Content); err != nil {
				s.log.Printf("relay message in room %d: %v", s.roomId, err)
			}
		case SendFrameEffect:
			s.queueFrame(e.Frame)
		case LeaveGroupEffect:
			s.broker.Leave(e.Group, s)
		case CloseEffect:
			s.shutdown()
		}
	}
}

func (s *ChatSession) queueFrame(frame any) bool {
	bytes, err := json.Marshal(frame)
	if err != nil {
		s.log.Println("failed to serialize frame:", err)
		return false
	}

	select {
	case s.send <- bytes:
	default:
		s.log.Println("failed to queue frame, channel is full")
		return false
	}

	return true
}

func (s *ChatSession) readPump() {
	defer func() {
		s.apply(s.step(ConnEvent{Disconnect: true}))
		s.cs.deregister(s)
		s.stats.Decr(stats.ActiveChatConnections)
		s.shutdown()
		s.log.Printf("chat read pump exiting for %q in room %d", s.user.Username, s.roomId)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			return
		}

		s.apply(s.step(ConnEvent{Frame: raw}))
	}
}

func (s *ChatSession) writePump() {
	runWritePump(s.conn, s.send, s.stop, s.log)
}

// shutdown stops the session. Once the pumps are running the connection is
// closed by the write pump, which first drains any queued frames so a kick
// notice reaches the client before the socket goes away.
func (s *ChatSession) shutdown() {
	s.closeOnce.Do(func() {
		close(s.stop)
		if !s.running {
			s.conn.Close()
		}
	})
}

// NotificationSession forwards personal notification payloads to one
// authenticated websocket connection.
type NotificationSession struct {
	conn   *websocket.Conn
	user   types.User
	broker broker.Broker
	cs     *ChatServer
	log    *log.Logger
	stats  stats.StatsProvider

	group     string
	send      chan []byte
	stop      chan struct{}
	closeOnce sync.Once
}

func NewNotificationSession(conn *websocket.Conn, user types.User, b broker.Broker, cs *ChatServer, logger *log.Logger, sp stats.StatsProvider) *NotificationSession {
	return &NotificationSession{
		conn:   conn,
		user:   user,
		broker: b,
		cs:     cs,
		log:    logger,
		stats:  sp,
		group:  broker.NotificationGroup(user.Id),
		send:   make(chan []byte, 256),
		stop:   make(chan struct{}),
	}
}

func (s *NotificationSession) Start() {
	s.cs.register(s)
	s.stats.Incr(stats.ActiveNotificationConnections)

	go s.writePump()
	go s.readPump()

	s.broker.Join(s.group, s)
}

// Deliver forwards send_notification payloads verbatim.
func (s *NotificationSession) Deliver(group string, payload []byte) {
	var ev GroupEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.Printf("notification session: bad group payload on %q: %v", group, err)
		return
	}

	if ev.Type != EventSendNotification {
		return
	}

	select {
	case s.send <- []byte(ev.Data):
	default:
		s.log.Println("failed to queue notification, channel is full")
	}
}

func (s *NotificationSession) readPump() {
	defer func() {
		s.broker.Leave(s.group, s)
		s.cs.deregister(s)
		s.stats.Decr(stats.ActiveNotificationConnections)
		s.shutdown()
		s.log.Printf("notification read pump exiting for %q", s.user.Username)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// the notification feed is outbound-only; inbound frames are read
		// solely to observe pongs and disconnects
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			return
		}
	}
}

func (s *NotificationSession) writePump() {
	runWritePump(s.conn, s.send, s.stop, s.log)
}

// shutdown signals the write pump, which drains queued payloads and then
// closes the connection.
func (s *NotificationSession) shutdown() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
}

func runWritePump(conn *websocket.Conn, send <-chan []byte, stop <-chan struct{}, logger *log.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					logger.Printf("write message: %s", err)
				}
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			// deliver everything already queued before closing, so a final
			// frame such as a kick notice is not lost to the shutdown race
			for {
				select {
				case msg := <-send:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
