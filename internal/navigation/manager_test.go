package navigation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	m := NewManager(testEstimator().Config, testNavConfig())
	a := m.Create()
	b := m.Create()
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.False(t, list[1].CreatedAt.Before(list[0].CreatedAt))

	require.NoError(t, m.Delete(a.ID))
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(a.ID), ErrSessionNotFound)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := NewManager(testEstimator().Config, testNavConfig())

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		sessions[i] = m.Create()
		require.NoError(t, sessions[i].LoadRoute(threePointRoute()))
		_, err := sessions[i].Start(0)
		require.NoError(t, err)
	}
	for i, s := range sessions {
		wg.Add(1)
		go func(accel float64, s *Session) {
			defer wg.Done()
			for k := 0; k < 40; k++ {
				_, _ = s.Process(accelSample(k, accel))
			}
		}(0.5+float64(i)*0.25, s)
	}
	wg.Wait()

	prev := -1.0
	for _, s := range sessions {
		pos, ok := s.Position()
		require.True(t, ok)
		assert.Greater(t, pos.DistanceOnRouteMeters, prev, "higher acceleration travels further")
		prev = pos.DistanceOnRouteMeters
	}
}
