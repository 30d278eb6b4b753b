package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerTryAdd(t *testing.T) {
	tracker := NewTracker()

	assert.True(t, tracker.TryAdd("listing-1"))
	assert.False(t, tracker.TryAdd("listing-1"))
	assert.True(t, tracker.Contains("listing-1"))
	assert.Equal(t, 1, tracker.Len())
}

func TestTrackerRemove(t *testing.T) {
	tracker := NewTracker()

	tracker.TryAdd("listing-1")
	tracker.Remove("listing-1")

	assert.False(t, tracker.Contains("listing-1"))
	assert.True(t, tracker.TryAdd("listing-1"))
}

func TestTrackerRemoveAbsentID(t *testing.T) {
	tracker := NewTracker()

	assert.NotPanics(t, func() {
		tracker.Remove("never-added")
	})
}

func TestTrackerConcurrentAddSingleWinner(t *testing.T) {
	tracker := NewTracker()

	const goroutines = 50
	var wg sync.WaitGroup
	wins := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.TryAdd("contested") {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won, "exactly one goroutine should reserve the id")
	assert.Equal(t, 1, tracker.Len())
}
