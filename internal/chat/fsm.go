package chat

import (
	"encoding/json"
	"strings"

	"github.com/eventsphere/eventsphere/internal/broker"
)

// State of a single chat connection.
type State int

const (
	StateConnecting State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectFacts carries the authorization facts resolved against the
// repository before the machine steps, keeping the transition function free
// of I/O.
type ConnectFacts struct {
	RoomFound bool
	RoomId    int
	Member    bool
	IsKicked  bool
}

// ConnEvent is the input alphabet of the connection machine: exactly one
// field is set.
type ConnEvent struct {
	Connect    *ConnectFacts
	Frame      []byte
	Group      *GroupEvent
	Disconnect bool
}

// Effects emitted by a transition, executed by the session against the
// broker, the chat service and the websocket.
type Effect interface{ isEffect() }

type JoinGroupEffect struct{ Group string }

type AcceptEffect struct{}

type CloseEffect struct{}

// RelayEffect asks the interpreter to persist the message, fan out
// notifications and broadcast to the room group, in that order.
type RelayEffect struct{ Content string }

type SendFrameEffect struct{ Frame any }

type LeaveGroupEffect struct{ Group string }

func (JoinGroupEffect) isEffect()  {}
func (AcceptEffect) isEffect()     {}
func (CloseEffect) isEffect()      {}
func (RelayEffect) isEffect()      {}
func (SendFrameEffect) isEffect()  {}
func (LeaveGroupEffect) isEffect() {}

// Machine is the per-connection finite-state machine. It holds only the
// caller's identity and the joined group name; all persistence and transport
// happen in the effect interpreter.
type Machine struct {
	userId int
	group  string
	state  State
}

func NewMachine(userId int) *Machine {
	return &Machine{userId: userId, state: StateConnecting}
}

func (m *Machine) State() State {
	return m.state
}

// Step advances the machine by one event and returns the effects to execute.
func (m *Machine) Step(ev ConnEvent) []Effect {
	switch {
	case ev.Connect != nil:
		return m.stepConnect(ev.Connect)
	case ev.Frame != nil:
		return m.stepFrame(ev.Frame)
	case ev.Group != nil:
		return m.stepGroup(ev.Group)
	case ev.Disconnect:
		return m.stepDisconnect()
	default:
		return nil
	}
}

func (m *Machine) stepConnect(facts *ConnectFacts) []Effect {
	if m.state != StateConnecting {
		return nil
	}

	// Absent room, absent membership or a sticky kick all reject the
	// connection without sending any frame.
	if !facts.RoomFound || !facts.Member || facts.IsKicked {
		m.state = StateClosed
		return []Effect{CloseEffect{}}
	}

	// Accept precedes JoinGroup so the interpreter has its pumps running
	// before the first group delivery can arrive.
	m.group = broker.ChatGroup(facts.RoomId)
	m.state = StateJoined
	return []Effect{
		AcceptEffect{},
		JoinGroupEffect{Group: m.group},
	}
}

func (m *Machine) stepFrame(raw []byte) []Effect {
	if m.state != StateJoined {
		return nil
	}

	// Malformed or empty frames are dropped silently; lenient-on-input is
	// the relay policy.
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil
	}
	if strings.TrimSpace(frame.Message) == "" {
		return nil
	}

	return []Effect{RelayEffect{Content: frame.Message}}
}

func (m *Machine) stepGroup(ev *GroupEvent) []Effect {
	if m.state != StateJoined {
		return nil
	}

	switch ev.Type {
	case EventChatMessage:
		return []Effect{SendFrameEffect{Frame: ChatFrame{
			Message:   ev.Message,
			Username:  ev.Username,
			Timestamp: ev.Timestamp,
		}}}
	case EventUserKicked:
		if ev.UserId != m.userId {
			// not for this connection, no side effect
			return nil
		}

		m.state = StateClosed
		return []Effect{
			SendFrameEffect{Frame: KickFrame{Type: EventUserKicked}},
			CloseEffect{},
			LeaveGroupEffect{Group: m.group},
		}
	default:
		return nil
	}
}

func (m *Machine) stepDisconnect() []Effect {
	prev := m.state
	m.state = StateClosed

	if prev == StateJoined {
		return []Effect{LeaveGroupEffect{Group: m.group}}
	}
	return nil
}
