package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock()
	assert.Equal(t, Epoch, clock.Now())

	clock.Advance(time.Hour)
	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())
}

func TestNewFakeClock_Independent(t *testing.T) {
	a := NewFakeClock()
	b := NewFakeClock()
	a.Advance(time.Minute)
	assert.Equal(t, Epoch, b.Now())
}
