package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiter(t *testing.T) {
	l := newLoginLimiter(2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ok, _ := l.allow("10.0.0.1", now)
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1", now)
	assert.True(t, ok)

	ok, wait := l.allow("10.0.0.1", now)
	assert.False(t, ok)
	assert.InDelta(t, 30*time.Second, wait, float64(time.Second))

	ok, _ = l.allow("10.0.0.2", now)
	assert.True(t, ok, "clients are limited separately")

	ok, _ = l.allow("10.0.0.1", now.Add(31*time.Second))
	assert.True(t, ok, "tokens refill over time")
}

func TestLoginLimiter_Disabled(t *testing.T) {
	l := newLoginLimiter(0)

	for i := 0; i < 100; i++ {
		ok, _ := l.allow("10.0.0.1", time.Now())
		assert.True(t, ok)
	}
}
