package dedupe

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressorSeen(t *testing.T) {
	s := New(time.Minute)

	assert.False(t, s.Seen("env-1"), "first observation is not a duplicate")
	assert.True(t, s.Seen("env-1"), "second observation is a duplicate")
	assert.False(t, s.Seen("env-2"), "distinct identifiers are independent")
}

func TestSuppressorEmptyID(t *testing.T) {
	s := New(time.Minute)

	// Envelopes without identifiers cannot be deduplicated, so they are
	// always let through rather than all being collapsed onto one key.
	assert.False(t, s.Seen(""))
	assert.False(t, s.Seen(""))
}

func TestSuppressorConcurrent(t *testing.T) {
	s := New(time.Minute)

	var firsts atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.Seen("contested") {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, firsts.Load(), "exactly one caller should win the first observation")
}

func TestSuppressorExpiry(t *testing.T) {
	s := New(20 * time.Millisecond)

	assert.False(t, s.Seen("ephemeral"))
	time.Sleep(60 * time.Millisecond)
	assert.False(t, s.Seen("ephemeral"), "expired identifiers are forgotten")
}
