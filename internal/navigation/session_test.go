package navigation

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/route"
)

func newTestSession() *Session {
	s := NewSession(testEstimator().Config, testNavConfig())
	return s
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestSession()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, Idle{}, s.State())

	_, err := s.Start(0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Process(accelSample(0, 1))
	assert.ErrorIs(t, err, ErrNotNavigating)

	dest := geo.Destination(home, 0, 200)
	require.NoError(t, s.SelectRoute(home, dest))
	assert.Equal(t, RouteSelected{Origin: home, Destination: dest}, s.State())

	r := threePointRoute()
	require.NoError(t, s.LoadRoute(r))
	assert.Equal(t, "route_loaded", StateName(s.State()))

	pos, err := s.Start(10)
	require.NoError(t, err)
	assert.InDelta(t, 10, pos.DistanceOnRouteMeters, 1e-9)
	assert.ErrorIs(t, s.LoadRoute(r), ErrInvalidTransition)
	assert.ErrorIs(t, s.SelectRoute(home, dest), ErrInvalidTransition)

	for i := 0; i < 30; i++ {
		pos, err = s.Process(accelSample(i, 1))
		require.NoError(t, err)
	}
	nav, ok := s.State().(Navigating)
	require.True(t, ok)
	assert.Equal(t, pos, nav.Last)
	assert.Same(t, r, nav.Route)

	current, ok := s.Position()
	require.True(t, ok)
	assert.Equal(t, pos, current)

	require.NoError(t, s.Stop())
	assert.Equal(t, RouteLoaded{Route: r}, s.State())
	assert.ErrorIs(t, s.Stop(), ErrNotNavigating)
	_, ok = s.Position()
	assert.False(t, ok)

	s.Fail(errors.New("sensor unplugged"))
	assert.True(t, strings.HasPrefix(Describe(s.State()), "failed"))

	s.Reset()
	assert.Equal(t, Idle{}, s.State())
}

func TestSession_ProcessBatchAndOverrides(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.LoadRoute(threePointRoute()))
	_, err := s.Start(0)
	require.NoError(t, err)

	batch := make([]imu.Sample, 0, 50)
	for i := 0; i < 50; i++ {
		batch = append(batch, accelSample(i, 1))
	}
	pos, err := s.ProcessBatch(batch)
	require.NoError(t, err)
	assert.InDelta(t, 0.01*49*50/2, pos.DistanceOnRouteMeters, 1e-6)

	pos, err = s.SetPositionOnRoute(190)
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.Confidence)
	assert.True(t, s.IsNavigationComplete())

	_, applied, err := s.Reanchor(geo.Destination(home, 0, 40))
	require.NoError(t, err)
	assert.True(t, applied)
	current, _ := s.Position()
	assert.InDelta(t, 40, current.DistanceOnRouteMeters, 0.5)
	assert.False(t, s.IsNavigationComplete())
}

func TestSession_LoadNilRoute(t *testing.T) {
	s := newTestSession()
	assert.ErrorIs(t, s.LoadRoute(nil), route.ErrNoRoute)
}

func TestSession_UpdateOrientation(t *testing.T) {
	s := newTestSession()
	assert.Error(t, s.UpdateOrientation([9]float64{}))
	require.NoError(t, s.UpdateOrientation([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
}

func TestSession_ConcurrentOrientationAndSamples(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.LoadRoute(threePointRoute()))
	_, err := s.Start(0)
	require.NoError(t, err)

	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = s.UpdateOrientation(identity)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = s.Process(accelSample(i, 0.5))
			_, _ = s.Position()
		}
	}()
	wg.Wait()

	pos, ok := s.Position()
	require.True(t, ok)
	assert.LessOrEqual(t, pos.DistanceOnRouteMeters, 200.0+1e-6)
}
