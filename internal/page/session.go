// Package page serves the zip code form and keeps, per open browser page, the
// server-side state of its map, result panel and notifications. View changes
// are pushed to the page over Server-Sent Events.
package page

import (
	"sync"
	"time"

	"zipcode_map/internal/lookup"
	"zipcode_map/platform/logger"
)

// EventType names the SSE events sent to a page.
type EventType string

const (
	EventSnapshot     EventType = "snapshot"
	EventMapView      EventType = "map_view"
	EventMarker       EventType = "marker"
	EventPanel        EventType = "panel"
	EventNotification EventType = "notification"
	EventConsole      EventType = "console"
)

const (
	clientBuffer     = 32
	maxNotifications = 20
)

// Event is one view mutation pushed to the browser.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// MapViewData is the payload of a map_view event.
type MapViewData struct {
	Center  lookup.LatLng `json:"center"`
	Zoom    int           `json:"zoom"`
	Animate bool          `json:"animate"`
}

// PanelData is the payload of a panel event and the panel part of a snapshot.
type PanelData struct {
	Visible bool                `json:"visible"`
	Info    *lookup.PlaceResult `json:"info,omitempty"`
	Fields  []lookup.Field      `json:"fields"`
}

// Notification is a transient message shown to the user.
type Notification struct {
	Level   lookup.Level `json:"level"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

// Snapshot is the full state of a page.
type Snapshot struct {
	ID            string          `json:"id"`
	Center        lookup.LatLng   `json:"center"`
	Zoom          int             `json:"zoom"`
	Markers       []lookup.LatLng `json:"markers"`
	Panel         PanelData       `json:"panel"`
	Notifications []Notification  `json:"notifications"`
}

type client struct {
	events chan Event
}

// Session is one open page. It implements the lookup views.
type Session struct {
	id  string
	log *logger.Logger

	mu            sync.RWMutex
	center        lookup.LatLng
	zoom          int
	markers       []lookup.LatLng
	panelVisible  bool
	info          *lookup.PlaceResult
	notifications []Notification
	clients       map[*client]struct{}
	closed        bool

	controller *lookup.Controller
}

// NewSession creates a page with the map at center and zoom and a single
// marker on the initial center.
func NewSession(id string, center lookup.LatLng, zoom int, log *logger.Logger) *Session {
	return &Session{
		id:      id,
		log:     log.WithPageID(id),
		center:  center,
		zoom:    zoom,
		markers: []lookup.LatLng{center},
		clients: make(map[*client]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Views returns the session as the set of surfaces a lookup controller writes to.
func (s *Session) Views() lookup.Views {
	return lookup.Views{Map: s, Panel: s, Notifier: s, Console: s}
}

// Controller returns the lookup controller bound to this page.
func (s *Session) Controller() *lookup.Controller {
	return s.controller
}

func (s *Session) SetView(center lookup.LatLng, zoom int, animate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.center = center
	s.zoom = zoom
	s.broadcastLocked(Event{Type: EventMapView, Data: MapViewData{Center: center, Zoom: zoom, Animate: animate}})
}

func (s *Session) AddMarker(at lookup.LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markers = append(s.markers, at)
	s.broadcastLocked(Event{Type: EventMarker, Data: at})
}

func (s *Session) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.panelVisible {
		return
	}
	s.panelVisible = true
	s.broadcastLocked(Event{Type: EventPanel, Data: s.panelLocked()})
}

func (s *Session) SetInfo(result lookup.PlaceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = &result
	s.broadcastLocked(Event{Type: EventPanel, Data: s.panelLocked()})
}

func (s *Session) Notify(level lookup.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{Level: level, Message: message, At: time.Now().UTC()}
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
	s.broadcastLocked(Event{Type: EventNotification, Data: n})
}

// Log forwards a lookup failure to the browser's developer console.
func (s *Session) Log(err error) {
	s.log.Debug("console", "error", err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcastLocked(Event{Type: EventConsole, Data: map[string]string{"error": err.Error()}})
}

// Snapshot returns a copy of the page state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers an SSE client and returns its event channel together
// with the state it starts from. No event is lost between the two.
func (s *Session) Subscribe() (<-chan Event, Snapshot, func()) {
	cl := &client{events: make(chan Event, clientBuffer)}

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	if s.closed {
		close(cl.events)
	} else {
		s.clients[cl] = struct{}{}
	}
	s.mu.Unlock()

	return cl.events, snapshot, func() { s.removeClient(cl) }
}

// Close disconnects every SSE client. Later view writes are kept in the
// state but not delivered.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for cl := range s.clients {
		close(cl.events)
	}
	s.clients = make(map[*client]struct{})
}

func (s *Session) removeClient(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[cl]; !ok {
		return
	}
	delete(s.clients, cl)
	close(cl.events)
}

// broadcastLocked delivers event to every client without blocking. A full
// client buffer drops the event.
func (s *Session) broadcastLocked(event Event) {
	for cl := range s.clients {
		select {
		case cl.events <- event:
		default:
			s.log.Warn("sse event buffer full", "event", string(event.Type))
		}
	}
}

func (s *Session) panelLocked() PanelData {
	panel := PanelData{Visible: s.panelVisible, Fields: []lookup.Field{}}
	if s.info != nil {
		info := *s.info
		panel.Info = &info
		panel.Fields = info.Fields()
	}
	return panel
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:            s.id,
		Center:        s.center,
		Zoom:          s.zoom,
		Markers:       append([]lookup.LatLng(nil), s.markers...),
		Panel:         s.panelLocked(),
		Notifications: append([]Notification{}, s.notifications...),
	}
}
