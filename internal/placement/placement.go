// Package placement tracks where the user has placed the test point and
// when to check it for sunlight.
//
// A Machine starts Idle, following the center of the map view. A check
// places the point at the current center and resolves it. While Placed,
// changing the time re-resolves the point. Reset, or picking a new
// location, returns to Idle.
package placement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/aclements/shade"
)

// DefaultMinZoom is the lowest map zoom at which buildings are shown and
// a check is allowed.
const DefaultMinZoom = 15

// State is whether a test point has been placed.
type State int

const (
	Idle State = iota
	Placed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Placed:
		return "placed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// An Event drives a Machine.
type Event interface {
	event() string
}

// LocationPicked moves the map center to Point, for example after a
// place search.
type LocationPicked struct {
	Point shade.GroundPoint
}

// CheckRequested asks to check the current center at the given map zoom.
type CheckRequested struct {
	Zoom float64
}

// TimeChanged sets the instant being checked.
type TimeChanged struct {
	T time.Time
}

// ResetRequested clears the placed point.
type ResetRequested struct{}

func (LocationPicked) event() string { return "location-picked" }
func (CheckRequested) event() string { return "check-requested" }
func (TimeChanged) event() string    { return "time-changed" }
func (ResetRequested) event() string { return "reset-requested" }

var (
	// ErrInvalidTransition is returned for an event the current state
	// does not accept. The state is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrZoomTooLow is returned when a check is requested below the
	// minimum zoom.
	ErrZoomTooLow = errors.New("zoom too low to check buildings")
)

// A Resolver decides whether a point is sunlit. *shade.Resolver is a
// Resolver.
type Resolver interface {
	Resolve(ctx context.Context, point shade.GroundPoint, t time.Time) (shade.ShadowResult, error)
}

// Options configures a Machine. Zero fields take defaults.
type Options struct {
	MinZoom       float64
	RayDistanceKm float64
	RaySegments   int
	Logger        *zap.Logger
}

// A Snapshot is the externally visible state of a Machine.
type Snapshot struct {
	State  State
	Center shade.GroundPoint
	Time   time.Time

	// Result and Ray are set while Placed. Ray is the sun ray to draw
	// from the placed point.
	Result *shade.ShadowResult
	Ray    *geojson.FeatureCollection
}

// A Machine is the placement state machine. It is safe for concurrent
// use; events are handled one at a time.
type Machine struct {
	resolver Resolver
	opts     Options

	mu   sync.Mutex
	snap Snapshot
}

// New returns an Idle machine centered on center at time t.
func New(resolver Resolver, center shade.GroundPoint, t time.Time, opts Options) *Machine {
	if opts.MinZoom == 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.RayDistanceKm <= 0 {
		opts.RayDistanceKm = shade.DefaultRayDistanceKm
	}
	if opts.RaySegments < 1 {
		opts.RaySegments = shade.DefaultRaySegments
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Machine{
		resolver: resolver,
		opts:     opts,
		snap:     Snapshot{State: Idle, Center: center, Time: t},
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Handle applies ev and returns the new state. On error the state is
// unchanged.
func (m *Machine) Handle(ctx context.Context, ev Event) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.transition(ctx, ev)
	if err != nil {
		m.opts.Logger.Debug("placement event rejected",
			zap.String("state", m.snap.State.String()),
			zap.String("event", ev.event()),
			zap.Error(err))
		return m.snap, err
	}
	if next.State != m.snap.State {
		m.opts.Logger.Debug("placement state changed",
			zap.String("from", m.snap.State.String()),
			zap.String("to", next.State.String()),
			zap.String("event", ev.event()))
	}
	m.snap = next
	return next, nil
}

func (m *Machine) transition(ctx context.Context, ev Event) (Snapshot, error) {
	s := m.snap
	switch ev := ev.(type) {
	case LocationPicked:
		return Snapshot{State: Idle, Center: ev.Point, Time: s.Time}, nil

	case CheckRequested:
		if s.State != Idle {
			break
		}
		if ev.Zoom < m.opts.MinZoom {
			return s, fmt.Errorf("%w: %.2f < %.2f", ErrZoomTooLow, ev.Zoom, m.opts.MinZoom)
		}
		return m.place(ctx, s.Center, s.Time)

	case TimeChanged:
		if s.State == Idle {
			s.Time = ev.T
			return s, nil
		}
		return m.place(ctx, s.Center, ev.T)

	case ResetRequested:
		if s.State != Placed {
			break
		}
		return Snapshot{State: Idle, Center: s.Center, Time: s.Time}, nil
	}
	return s, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev.event(), s.State)
}

// place resolves point at t and returns the Placed state for it.
func (m *Machine) place(ctx context.Context, point shade.GroundPoint, t time.Time) (Snapshot, error) {
	res, err := m.resolver.Resolve(ctx, point, t)
	if err != nil {
		return m.snap, err
	}
	end := shade.Project3DRay(point, m.opts.RayDistanceKm, res.Sun.AzimuthDegrees, res.Sun.AltitudeDegrees)
	segs := shade.SubdivideRay(point.Point(), end.Position, 0, end.Elevation, m.opts.RaySegments)
	return Snapshot{
		State:  Placed,
		Center: point,
		Time:   t,
		Result: &res,
		Ray:    shade.RayFeatures(point, res.Sun, end, segs),
	}, nil
}
