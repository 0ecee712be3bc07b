package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventsphere/eventsphere/internal/testutil"
)

type fakeSession struct {
	closed bool
}

func (f *fakeSession) shutdown() {
	f.closed = true
}

func TestChatServerRegistration(t *testing.T) {
	cs := NewChatServer(testutil.TestLogger(t))

	s1 := &fakeSession{}
	s2 := &fakeSession{}

	cs.register(s1)
	cs.register(s2)
	assert.Equal(t, 2, cs.sessionCount())

	cs.deregister(s1)
	assert.Equal(t, 1, cs.sessionCount())
}

func TestChatServerShutdown(t *testing.T) {
	cs := NewChatServer(testutil.TestLogger(t))

	s1 := &fakeSession{}
	s2 := &fakeSession{}
	cs.register(s1)
	cs.register(s2)

	assert.NoError(t, cs.Shutdown(context.Background()))
	assert.True(t, s1.closed)
	assert.True(t, s2.closed)
}
