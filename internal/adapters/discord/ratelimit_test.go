package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(time.Hour, 2)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))
}
