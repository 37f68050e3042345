package progress

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedStore() *Store {
	s := NewStore()
	s.now = func() time.Time { return time.Unix(1700000000, 500_000_000) }
	n := 0
	s.newID = func() string { n++; return fmt.Sprintf("id%d", n) }
	return s
}

func TestUpdateComputesPercentage(t *testing.T) {
	s := fixedStore()

	cases := []struct {
		current, total, want int
	}{
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{5, 0, 0},
		{7, 5, 100},
		{-1, 5, 0},
	}
	for _, tc := range cases {
		s.Update("t", tc.current, tc.total, "msg", nil)
		snap, err := s.Get("t")
		require.NoError(t, err)
		assert.Equal(t, tc.want, snap.Percentage, "current=%d total=%d", tc.current, tc.total)
		assert.Nil(t, snap.ETASeconds)
		assert.InDelta(t, 1700000000.5, snap.Timestamp, 0.001)
	}
}

func TestUpdateOverwritesAndCopiesETA(t *testing.T) {
	s := fixedStore()
	eta := 42
	s.Update("t", 1, 4, "first", &eta)
	eta = 7

	snap, err := s.Get("t")
	require.NoError(t, err)
	require.NotNil(t, snap.ETASeconds)
	assert.Equal(t, 42, *snap.ETASeconds)
	assert.Equal(t, "first", snap.Message)

	s.Update("t", 2, 4, "second", nil)
	snap, _ = s.Get("t")
	assert.Equal(t, "second", snap.Message)
	assert.Nil(t, snap.ETASeconds)
}

func TestGetUnknownTask(t *testing.T) {
	s := fixedStore()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestBeginUsesRequestedIDWhenFree(t *testing.T) {
	s := fixedStore()

	tr := s.Begin(KindImages, "images_1712")
	assert.Equal(t, "images_1712", tr.ID())

	// Same id while the first run is live gets a fresh one.
	tr2 := s.Begin(KindImages, "images_1712")
	assert.Equal(t, "images_id1", tr2.ID())

	// Malformed ids are never used as keys.
	tr3 := s.Begin(KindText, "../etc")
	assert.Equal(t, "text_id2", tr3.ID())

	tr4 := s.Begin(KindText, "")
	assert.True(t, strings.HasPrefix(tr4.ID(), "text_"))

	assert.Equal(t, 4, s.Len())
}

func TestTrackerCloseRemovesEntryAndDropsLateUpdates(t *testing.T) {
	s := fixedStore()
	tr := s.Begin(KindText, "")

	tr.Update(1, 2, "halfway", nil)
	snap, err := s.Get(tr.ID())
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Percentage)

	tr.Close()
	tr.Close()
	_, err = s.Get(tr.ID())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tr.Update(2, 2, "late", nil)
	_, err = s.Get(tr.ID())
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Zero(t, s.Len())
}

func TestConcurrentUpdatesToDifferentKeys(t *testing.T) {
	s := NewStore()
	const runs, steps = 16, 200

	var wg sync.WaitGroup
	for r := 0; r < runs; r++ {
		tr := s.Begin(KindImages, "")
		wg.Add(1)
		go func(tr *Tracker) {
			defer wg.Done()
			for i := 1; i <= steps; i++ {
				tr.Update(i, steps, "step", nil)
			}
		}(tr)
	}
	wg.Wait()

	assert.Equal(t, runs, s.Len())
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, snap := range s.tasks {
		assert.Equal(t, steps, snap.Current, id)
		assert.Equal(t, 100, snap.Percentage, id)
	}
}
