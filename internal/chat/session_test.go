package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/testutil"
	"github.com/eventsphere/eventsphere/internal/types"
)

// dialTestSession upgrades one websocket connection and starts a chat session
// on it, returning the client side of the connection and the live session.
func dialTestSession(t *testing.T, svc *Service, b broker.Broker, cs *ChatServer, user types.User, facts ConnectFacts) (*websocket.Conn, *ChatSession) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	sessions := make(chan *ChatSession, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		sess := NewChatSession(conn, user, facts.RoomId, svc, b, cs, testutil.TestLogger(t), stats.NopStats{})
		sess.Start(facts)
		sessions <- sess
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn, <-sessions
}

func TestChatSessionKickFrameDelivered(t *testing.T) {
	mockRepo := &database.MockEventSphereRepository{}
	defer mockRepo.AssertExpectations(t)

	b := broker.NewMemoryBroker()
	logger := testutil.TestLogger(t)
	svc := NewService(mockRepo, b, stats.NopStats{}, logger)
	cs := NewChatServer(logger)

	user := types.User{Id: 2, Username: "bob"}
	conn, _ := dialTestSession(t, svc, b, cs, user, ConnectFacts{RoomFound: true, RoomId: 1, Member: true})

	room := database.Room{Id: 1, EventId: 10, EventName: "GopherCon", CreatorId: 99}
	mockRepo.On("GetRoomById", 1).Return(room, nil).Once()
	mockRepo.On("KickRoomMember", 1, 2).Return(nil).Once()

	err := svc.Kick(context.Background(), 1, types.User{Id: 99, Username: "carol"}, 2)
	assert.NoError(t, err)

	// the kick notice must reach the kicked client before the socket closes
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, frame, err := conn.ReadMessage()
	assert.NoError(t, err)

	var kick KickFrame
	assert.NoError(t, json.Unmarshal(frame, &kick))
	assert.Equal(t, EventUserKicked, kick.Type)

	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection should close after the kick notice")
}

func TestChatSessionRelayRoundTrip(t *testing.T) {
	mockRepo := &database.MockEventSphereRepository{}
	defer mockRepo.AssertExpectations(t)

	b := broker.NewMemoryBroker()
	logger := testutil.TestLogger(t)
	svc := NewService(mockRepo, b, stats.NopStats{}, logger)
	cs := NewChatServer(logger)

	user := types.User{Id: 2, Username: "alice"}
	conn, _ := dialTestSession(t, svc, b, cs, user, ConnectFacts{RoomFound: true, RoomId: 1, Member: true})

	room := database.Room{Id: 1, EventId: 10, EventName: "GopherCon", CreatorId: 99}
	mockRepo.On("GetRoomById", 1).Return(room, nil).Once()
	mockRepo.On("GetRoomMember", 1, 2).Return(database.Member{RoomId: 1, UserId: 2}, nil).Once()
	mockRepo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
		return m.RoomId == 1 && m.UserId == 2 && m.Content == "hi"
	})).Return(database.Message{Id: 5}, nil).Once()
	mockRepo.On("ListRoomMembers", 1).Return([]database.Member{
		{RoomId: 1, UserId: 2, Username: "alice"},
	}, nil).Once()

	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message": "hi"}`)))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, frame, err := conn.ReadMessage()
	assert.NoError(t, err)

	var cf ChatFrame
	assert.NoError(t, json.Unmarshal(frame, &cf))
	assert.Equal(t, "hi", cf.Message)
	assert.Equal(t, "alice", cf.Username)
	assert.NotEmpty(t, cf.Timestamp)
}

func TestChatSessionConcurrentDeliveries(t *testing.T) {
	mockRepo := &database.MockEventSphereRepository{}
	b := broker.NewMemoryBroker()
	logger := testutil.TestLogger(t)
	svc := NewService(mockRepo, b, stats.NopStats{}, logger)
	cs := NewChatServer(logger)

	user := types.User{Id: 2, Username: "bob"}
	conn, sess := dialTestSession(t, svc, b, cs, user, ConnectFacts{RoomFound: true, RoomId: 1, Member: true})

	chatPayload, err := json.Marshal(GroupEvent{
		Type:      EventChatMessage,
		Message:   "hi",
		Username:  "alice",
		Timestamp: "2024-05-01 12:00:00",
	})
	assert.NoError(t, err)

	// group deliveries from many publishers race inbound frames through the
	// same connection machine
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				sess.Deliver(broker.ChatGroup(1), chatPayload)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	}
	wg.Wait()

	kickPayload, err := json.Marshal(GroupEvent{Type: EventUserKicked, UserId: 2})
	assert.NoError(t, err)
	assert.NoError(t, b.Publish(context.Background(), broker.ChatGroup(1), kickPayload))

	// drain chat frames until the connection closes; the kick notice must be
	// among the delivered frames
	sawKick := false
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var kick KickFrame
		if json.Unmarshal(frame, &kick) == nil && kick.Type == EventUserKicked {
			sawKick = true
		}
	}

	assert.True(t, sawKick, "kick notice should reach the client")
}
