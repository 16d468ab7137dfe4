package oauthstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-health-assistant/internal/oauthstate"
)

func TestIssueAndTakeOnce(t *testing.T) {
	s := oauthstate.New(time.Minute)
	t.Cleanup(s.Stop)

	state := s.Issue(7)
	assert.Len(t, state, 32)

	p, ok := s.Peek(state)
	assert.True(t, ok)
	assert.Equal(t, int64(7), p.UserID)

	p, ok = s.Take(state)
	assert.True(t, ok)
	assert.Equal(t, int64(7), p.UserID)

	_, ok = s.Take(state)
	assert.False(t, ok)
	_, ok = s.Take("")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	s := oauthstate.New(20 * time.Millisecond)
	t.Cleanup(s.Stop)

	s.Put("req-token", oauthstate.Pending{UserID: 1, Secret: "sec"})
	assert.Eventually(t, func() bool {
		_, ok := s.Peek("req-token")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
