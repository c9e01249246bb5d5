package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/account-overlay/internal/model"
)

func TestCache_ExpiresAfterTimeout(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(clock)

	_, ok := c.Get(cacheKey, time.Minute)
	assert.False(t, ok)

	c.Set(cacheKey, model.OverlayPayload{IsLoggedIn: true, CustomerName: "Jane Doe"})

	clock.Advance(time.Minute - time.Millisecond)
	got, ok := c.Get(cacheKey, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", got.CustomerName)

	clock.Advance(time.Millisecond)
	_, ok = c.Get(cacheKey, time.Minute)
	assert.False(t, ok, "entry is valid only while age < timeout")
	assert.Equal(t, 1, c.Len())
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(newFakeClock())
	c.Set(cacheKey, model.OverlayPayload{})
	c.Set("other", model.OverlayPayload{})

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(cacheKey, time.Hour)
	assert.False(t, ok)
}
