package page

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"zipcode_map/internal/events"
	apphttp "zipcode_map/internal/http"
	"zipcode_map/internal/http/router"
	"zipcode_map/internal/lookup"
	"zipcode_map/internal/zipcode"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	result lookup.PlaceResult
	err    error
}

func (f stubFetcher) FetchPlace(context.Context, string, string) (lookup.PlaceResult, error) {
	return f.result, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		MapTileURL:          "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		MapTileMaxZoom:      19,
		MapDefaultLat:       51.505,
		MapDefaultLon:       -0.09,
		MapDefaultZoom:      13,
		MapResultZoom:       8,
		PageSessionTTL:      time.Minute,
		LookupRatePerMinute: 600,
		LookupRateBurst:     100,
	}
}

func newTestApp(t *testing.T, fetcher lookup.PlaceFetcher) (*gin.Engine, *Module) {
	t.Helper()
	return newTestAppWithConfig(t, testConfig(), fetcher)
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config, fetcher lookup.PlaceFetcher) (*gin.Engine, *Module) {
	t.Helper()

	log := logger.NewWithWriter("production", io.Discard)
	module := NewModule(cfg, zipcode.DefaultCatalogue(), fetcher, events.NewInMemoryBus(log), log, nil)
	t.Cleanup(module.Store().Close)

	engine := router.New(&apphttp.App{
		Config:                cfg,
		Logger:                log,
		ContentSecurityPolicy: ContentSecurityPolicy(cfg),
		Modules:               []apphttp.Module{module},
	})
	return engine, module
}

func openPage(t *testing.T, engine *gin.Engine) (*goquery.Document, *httptest.ResponseRecorder) {
	t.Helper()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return doc, rec
}

func pageID(t *testing.T, doc *goquery.Document) string {
	t.Helper()

	id, ok := doc.Find("#app").Attr("data-page-id")
	if !ok || id == "" {
		t.Fatal("expected page id on the app container")
	}
	return id
}

func submit(engine *gin.Engine, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pages/"+id+"/lookups", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersForm(t *testing.T) {
	engine, module := newTestApp(t, stubFetcher{})
	doc, rec := openPage(t, engine)

	first := doc.Find(`select[name="source"] option`).First()
	if val, _ := first.Attr("value"); val != "" || first.Text() != "Select Country" {
		t.Fatalf("expected empty Select Country option, got %q %q", val, first.Text())
	}
	if n := doc.Find(`select[name="source"] option`).Length(); n != len(zipcode.DefaultCatalogue().All())+1 {
		t.Fatalf("expected one option per country plus placeholder, got %d", n)
	}
	if doc.Find(`input[name="zip"]`).Length() != 1 {
		t.Fatal("expected a zip input")
	}
	if doc.Find(".result.hidden .info").Length() != 1 || doc.Find(".result.hidden .map").Length() != 1 {
		t.Fatal("expected hidden result panel with info and map containers")
	}

	if _, err := module.Store().Get(pageID(t, doc)); err != nil {
		t.Fatalf("expected page session to be stored, got %v", err)
	}

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "https://unpkg.com") || !strings.Contains(csp, "https://tile.openstreetmap.org") {
		t.Fatalf("expected leaflet and tiles in CSP, got %q", csp)
	}
}

func TestSubmitRendersPlaceOnPage(t *testing.T) {
	london := lookup.PlaceResult{Latitude: 51.5, Longitude: -0.09, State: "England", PlaceName: "London"}
	engine, module := newTestApp(t, stubFetcher{result: london})
	doc, _ := openPage(t, engine)
	id := pageID(t, doc)

	rec := submit(engine, id, `{"source":"gb","zip":"EC1A"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	session, _ := module.Store().Get(id)
	session.Controller().Wait()

	snapRec := httptest.NewRecorder()
	engine.ServeHTTP(snapRec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/"+id, nil))

	var snapshot Snapshot
	if err := json.Unmarshal(snapRec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snapshot.Panel.Visible || snapshot.Panel.Info == nil || *snapshot.Panel.Info != london {
		t.Fatalf("expected London in a visible panel, got %+v", snapshot.Panel)
	}
	if snapshot.Zoom != 8 || snapshot.Center != london.Position() {
		t.Fatalf("expected map on London at zoom 8, got %v zoom %d", snapshot.Center, snapshot.Zoom)
	}
	if len(snapshot.Markers) != 2 {
		t.Fatalf("expected initial and result markers, got %v", snapshot.Markers)
	}
}

func TestSubmitWithMissingFieldsWarns(t *testing.T) {
	engine, module := newTestApp(t, stubFetcher{})
	doc, _ := openPage(t, engine)
	id := pageID(t, doc)

	rec := submit(engine, id, `{"source":"","zip":"90210"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), lookup.MessageMissingInput) {
		t.Fatalf("expected warning message in body, got %s", rec.Body.String())
	}

	session, _ := module.Store().Get(id)
	notes := session.Snapshot().Notifications
	if len(notes) != 1 || notes[0].Level != lookup.LevelWarning {
		t.Fatalf("expected one warning notification, got %+v", notes)
	}
}

func TestSubmitWithMalformedBodyIsBadRequest(t *testing.T) {
	engine, module := newTestApp(t, stubFetcher{})
	doc, _ := openPage(t, engine)
	id := pageID(t, doc)

	rec := submit(engine, id, `{"source":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	session, _ := module.Store().Get(id)
	if notes := session.Snapshot().Notifications; len(notes) != 0 {
		t.Fatalf("expected no notification for a rejected body, got %+v", notes)
	}
}

func TestIndexCarriesFetchFailedMessage(t *testing.T) {
	engine, _ := newTestApp(t, stubFetcher{})
	doc, _ := openPage(t, engine)

	if msg, _ := doc.Find("#app").Attr("data-fetch-failed"); msg != lookup.MessageFetchFailed {
		t.Fatalf("expected fetch failure message on the app container, got %q", msg)
	}
}

func TestUnknownPageIsNotFound(t *testing.T) {
	engine, _ := newTestApp(t, stubFetcher{})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/pages/missing", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/pages/missing/lookups", strings.NewReader(`{"source":"us","zip":"1"}`)),
		httptest.NewRequest(http.MethodGet, "/api/v1/pages/missing/events", nil),
	} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestStaticAssetsAreServed(t *testing.T) {
	engine, _ := newTestApp(t, stubFetcher{})

	for _, path := range []string{"/static/app.js", "/static/style.css", "/static/pin.svg"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
			t.Fatalf("%s: expected asset, got %d", path, rec.Code)
		}
	}
}

type sseEvent struct {
	name string
	data string
}

func readEvent(r *bufio.Reader) (sseEvent, error) {
	var event sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return event, err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "" && event.name != "":
			return event, nil
		case strings.HasPrefix(line, "event:"):
			event.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			event.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestEventStreamStartsWithSnapshotAndReportsFailures(t *testing.T) {
	engine, _ := newTestApp(t, stubFetcher{err: errors.New("connection refused")})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("open page: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	id := pageID(t, doc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/pages/"+id+"/events", nil)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = stream.Body.Close() }()

	if ct := stream.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %q", ct)
	}

	reader := bufio.NewReader(stream.Body)
	first, err := readEvent(reader)
	if err != nil || first.name != string(EventSnapshot) {
		t.Fatalf("expected snapshot first, got %+v (%v)", first, err)
	}

	post, err := http.Post(srv.URL+"/api/v1/pages/"+id+"/lookups", "application/json", strings.NewReader(`{"source":"us","zip":"00000"}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_ = post.Body.Close()
	if post.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", post.StatusCode)
	}

	got := map[string]sseEvent{}
	for len(got) < 2 {
		event, err := readEvent(reader)
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		got[event.name] = event
	}

	var note Notification
	if err := json.Unmarshal([]byte(got[string(EventNotification)].data), &note); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if note.Level != lookup.LevelDanger || note.Message != lookup.MessageFetchFailed {
		t.Fatalf("expected danger notification, got %+v", note)
	}
	if !strings.Contains(got[string(EventConsole)].data, "connection refused") {
		t.Fatalf("expected cause on the console, got %q", got[string(EventConsole)].data)
	}
}

func TestOpenEventStreamKeepsSessionAlive(t *testing.T) {
	cfg := testConfig()
	cfg.PageSessionTTL = 80 * time.Millisecond
	engine, module := newTestAppWithConfig(t, cfg, stubFetcher{})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	watched := module.Store().Create().ID()
	idle := module.Store().Create().ID()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/pages/"+watched+"/events", nil)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer func() { _ = stream.Body.Close() }()

	reader := bufio.NewReader(stream.Body)
	if first, err := readEvent(reader); err != nil || first.name != string(EventSnapshot) {
		t.Fatalf("expected snapshot first, got %+v (%v)", first, err)
	}

	// Several ttls pass with nothing but keep-alives on the stream.
	deadline := time.Now().Add(4 * cfg.PageSessionTTL)
	pings := 0
	for time.Now().Before(deadline) {
		event, err := readEvent(reader)
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if event.name == eventPing {
			pings++
		}
	}
	if pings == 0 {
		t.Fatal("expected keep-alive pings on an idle stream")
	}

	if _, err := module.Store().Get(watched); err != nil {
		t.Fatalf("expected streamed page to outlive its ttl, got %v", err)
	}
	if _, err := module.Store().Get(idle); err == nil {
		t.Fatal("expected page without a stream to expire")
	}
}
