package chat

import (
	"context"
	"log"
	"sync"
)

type session interface {
	shutdown()
}

// ChatServer tracks live websocket sessions so shutdown can close them
// cleanly. Room state itself lives in the database and the broker; the
// server holds no per-room state.
type ChatServer struct {
	log          *log.Logger
	sessions     map[session]struct{}
	sessionsLock sync.Mutex
}

func NewChatServer(logger *log.Logger) *ChatServer {
	return &ChatServer{
		log:      logger,
		sessions: make(map[session]struct{}),
	}
}

func (cs *ChatServer) register(s session) {
	cs.sessionsLock.Lock()
	defer cs.sessionsLock.Unlock()
	cs.sessions[s] = struct{}{}
}

func (cs *ChatServer) deregister(s session) {
	cs.sessionsLock.Lock()
	defer cs.sessionsLock.Unlock()
	delete(cs.sessions, s)
}

func (cs *ChatServer) sessionCount() int {
	cs.sessionsLock.Lock()
	defer cs.sessionsLock.Unlock()
	return len(cs.sessions)
}

// Shutdown closes every live session. Each session deregisters itself as its
// read pump unwinds.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("closing live sessions")

	cs.sessionsLock.Lock()
	sessions := make([]session, 0, len(cs.sessions))
	for s := range cs.sessions {
		sessions = append(sessions, s)
	}
	cs.sessionsLock.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}

	return ctx.Err()
}
