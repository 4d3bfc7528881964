package page

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zipcode_map/internal/lookup"
	"zipcode_map/internal/zipcode"
	"zipcode_map/platform/apperr"
	"zipcode_map/platform/config"
	"zipcode_map/platform/httpkit"
	"zipcode_map/platform/logger"
)

const (
	indexTemplate = "index.html.tmpl"

	// keepAliveInterval bounds the gap between writes on an idle event stream.
	keepAliveInterval = 15 * time.Second
	eventPing         = "ping"
)

// Handler serves the lookup page and its per-session API.
type Handler struct {
	store     *Store
	catalogue *zipcode.Catalogue
	mapCfg    config.MapConfig
	log       *logger.Logger
	keepAlive time.Duration
}

func NewHandler(store *Store, catalogue *zipcode.Catalogue, mapCfg config.MapConfig, log *logger.Logger) *Handler {
	keepAlive := keepAliveInterval
	if half := store.TTL() / 2; half > 0 && half < keepAlive {
		keepAlive = half
	}
	return &Handler{store: store, catalogue: catalogue, mapCfg: mapCfg, log: log, keepAlive: keepAlive}
}

type mapSettings struct {
	TileURL     string `json:"tileUrl"`
	MaxZoom     int    `json:"maxZoom"`
	Attribution string `json:"attribution"`
}

type indexView struct {
	PageID      string
	Countries   []zipcode.Country
	Map         mapSettings
	FetchFailed string
}

// Index opens a new page session and renders the form.
func (h *Handler) Index(c *gin.Context) {
	session := h.store.Create()
	h.log.WithContext(c.Request.Context()).Info("page session created", "page_id", session.ID())

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, indexTemplate, indexView{
		PageID:    session.ID(),
		Countries: h.catalogue.All(),
		Map: mapSettings{
			TileURL:     h.mapCfg.GetMapTileURL(),
			MaxZoom:     h.mapCfg.GetMapTileMaxZoom(),
			Attribution: "&copy; OpenStreetMap contributors",
		},
		FetchFailed: lookup.MessageFetchFailed,
	})
}

// Submit runs one form submission against the page's controller. The fetch
// continues after the response; its outcome arrives over the event stream.
func (h *Handler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req lookup.Request
	if err := c.ShouldBind(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body").WithDetails(err.Error()))
		return
	}

	if err := session.Controller().HandleSubmit(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Accepted(c, gin.H{"status": "accepted"})
}

// Snapshot returns the current page state as JSON.
func (h *Handler) Snapshot(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	httpkit.OK(c, session.Snapshot())
}

// Events streams view mutations of the page. The first event is the full
// snapshot. While the stream is open the session does not expire, and a ping
// is written whenever the stream has been quiet for the keep-alive interval.
func (h *Handler) Events(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events, snapshot, unsubscribe := session.Subscribe()
	defer unsubscribe()

	log := h.log.WithPageID(session.ID())
	log.Debug("sse client connected")

	writeEvent(c, Event{Type: EventSnapshot, Data: snapshot})

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			log.Debug("sse client disconnected")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(c, event)
		case <-ticker.C:
			if err := h.store.Touch(session.ID()); err != nil {
				log.Debug("page session gone, closing stream")
				return
			}
			c.SSEvent(eventPing, "")
			c.Writer.Flush()
		}
	}
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, err)
		return nil, false
	}
	return session, true
}

func writeEvent(c *gin.Context, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		_ = c.Error(apperr.Wrap(apperr.KindInternal, "failed to encode event", err))
		return
	}
	c.SSEvent(string(event.Type), string(data))
	c.Writer.Flush()
}
