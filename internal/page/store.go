package page

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zekroTJA/timedmap"

	"zipcode_map/internal/lookup"
	"zipcode_map/platform/apperr"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

const cleanupInterval = time.Minute

// ControllerFactory builds the lookup controller for a new page.
type ControllerFactory func(views lookup.Views) *lookup.Controller

// Store keeps page sessions in memory and expires them after ttl without activity.
type Store struct {
	sessions      *timedmap.TimedMap
	ttl           time.Duration
	center        lookup.LatLng
	zoom          int
	newController ControllerFactory
	log           *logger.Logger
	metrics       *metrics.Metrics
	live          atomic.Int64
	closeOnce     sync.Once
}

func NewStore(ttl time.Duration, center lookup.LatLng, zoom int, factory ControllerFactory, log *logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		sessions:      timedmap.New(cleanupInterval),
		ttl:           ttl,
		center:        center,
		zoom:          zoom,
		newController: factory,
		log:           log,
		metrics:       m,
	}
}

// Create opens a new page session with its own controller.
func (s *Store) Create() *Session {
	session := NewSession(uuid.NewString(), s.center, s.zoom, s.log)
	session.controller = s.newController(session.Views())

	// The expiry callback runs inside the map's cleanup and must not call back into it.
	s.sessions.Set(session.ID(), session, s.ttl, func(value interface{}) {
		if expired, ok := value.(*Session); ok {
			expired.Close()
			s.log.Debug("page session expired", "page_id", expired.ID())
		}
		s.metrics.SetPageSessions(int(s.live.Add(-1)))
	})
	s.metrics.SetPageSessions(int(s.live.Add(1)))

	return session
}

// Get returns the session and pushes its expiry back by the idle ttl.
func (s *Store) Get(id string) (*Session, error) {
	session, ok := s.sessions.GetValue(id).(*Session)
	if !ok {
		return nil, apperr.NotFound("page session not found").WithOp("page.Store.Get")
	}
	_ = s.sessions.SetExpires(id, s.ttl)
	return session, nil
}

// Touch pushes the expiry of a live session back by the idle ttl.
func (s *Store) Touch(id string) error {
	if err := s.sessions.SetExpires(id, s.ttl); err != nil {
		return apperr.NotFound("page session not found").WithOp("page.Store.Touch")
	}
	return nil
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return int(s.live.Load())
}

// Close stops the cleanup loop and disconnects every open page.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.sessions.StopCleaner()
		for _, value := range s.sessions.Snapshot() {
			if session, ok := value.(*Session); ok {
				session.Close()
			}
		}
	})
}
