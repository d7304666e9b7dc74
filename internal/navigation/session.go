package navigation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/deadreckon/internal/estimator"
	"github.com/banshee-data/deadreckon/internal/geo"
	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/mapmatch"
	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/route"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("navigation: invalid state transition")
	// ErrNotNavigating is returned by sample operations outside Navigating.
	ErrNotNavigating = errors.New("navigation: session is not navigating")
)

// Session is one independent navigation: an estimator, a projector and the
// lifecycle state. All methods are safe for concurrent use; sample and
// orientation updates are serialised through the same lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	proj  *Projector
	state State
}

// NewSession returns an idle session with a fresh ID.
func NewSession(estCfg estimator.Config, navCfg Config) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		proj:      NewProjector(estimator.New(estCfg), navCfg),
		state:     Idle{},
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectRoute records the endpoints of a route to be fetched.
func (s *Session) SelectRoute(origin, destination geo.LatLon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Navigating); ok {
		return fmt.Errorf("%w: select route while navigating", ErrInvalidTransition)
	}
	s.state = RouteSelected{Origin: origin, Destination: destination}
	return nil
}

// LoadRoute attaches a route, ready to Start.
func (s *Session) LoadRoute(r *route.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Navigating); ok {
		return fmt.Errorf("%w: load route while navigating", ErrInvalidTransition)
	}
	if r == nil {
		return fmt.Errorf("%w: nil route", route.ErrNoRoute)
	}
	s.state = RouteLoaded{Route: r}
	return nil
}

// Start begins dead-reckoning on the loaded route from startDistance.
func (s *Session) Start(startDistance float64) (EstimatedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded, ok := s.state.(RouteLoaded)
	if !ok {
		return EstimatedPosition{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, StateName(s.state))
	}
	s.proj.Initialize(loaded.Route, startDistance)
	pos := s.proj.Position()
	s.state = Navigating{Route: loaded.Route, Last: pos}
	monitoring.Debugf("session %s: navigating from %.1f m", s.ID, pos.DistanceOnRouteMeters)
	return pos, nil
}

// Process feeds one sample.
func (s *Session) Process(sample imu.Sample) (EstimatedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav, ok := s.state.(Navigating)
	if !ok {
		return EstimatedPosition{}, ErrNotNavigating
	}
	nav.Last = s.proj.ProcessSample(sample)
	s.state = nav
	return nav.Last, nil
}

// ProcessBatch feeds samples in order and returns the last position.
func (s *Session) ProcessBatch(samples []imu.Sample) (EstimatedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav, ok := s.state.(Navigating)
	if !ok {
		return EstimatedPosition{}, ErrNotNavigating
	}
	for _, sample := range samples {
		nav.Last = s.proj.ProcessSample(sample)
	}
	s.state = nav
	return nav.Last, nil
}

// UpdateOrientation stores a new device→world rotation. Allowed in any state.
func (s *Session) UpdateOrientation(rowMajor [9]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.Estimator().SetOrientation(rowMajor)
}

// SetPositionOnRoute manually places the agent.
func (s *Session) SetPositionOnRoute(distance float64) (EstimatedPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav, ok := s.state.(Navigating)
	if !ok {
		return EstimatedPosition{}, ErrNotNavigating
	}
	s.proj.SetPositionOnRoute(distance)
	nav.Last = s.proj.Position()
	s.state = nav
	return nav.Last, nil
}

// Reanchor snaps the agent to an out-of-band fix when it is close enough to
// the route. The bool reports whether the fix was applied.
func (s *Session) Reanchor(fix geo.LatLon) (mapmatch.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav, ok := s.state.(Navigating)
	if !ok {
		return mapmatch.Result{}, false, ErrNotNavigating
	}
	res, applied := s.proj.Reanchor(fix)
	if applied {
		nav.Last = s.proj.Position()
		s.state = nav
	}
	return res, applied, nil
}

// Position returns the latest estimate; ok is false outside Navigating.
func (s *Session) Position() (EstimatedPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Navigating); !ok {
		return EstimatedPosition{}, false
	}
	return s.proj.Position(), true
}

// IsNavigationComplete reports arrival at the end of the route.
func (s *Session) IsNavigationComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Navigating); !ok {
		return false
	}
	return s.proj.IsNavigationComplete()
}

// Stop ends navigation, keeping the route loaded.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav, ok := s.state.(Navigating)
	if !ok {
		return ErrNotNavigating
	}
	s.state = RouteLoaded{Route: nav.Route}
	return nil
}

// Fail moves the session to Failed.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	monitoring.Logf("session %s failed: %v", s.ID, err)
	s.state = Failed{Err: err}
}

// Reset discards route, estimate and orientation and returns to Idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	est := s.proj.Estimator()
	est.ClearOrientation()
	s.proj.Initialize(nil, 0)
	s.state = Idle{}
}
