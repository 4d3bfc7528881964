package httpkit

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"zipcode_map/platform/apperr"
	"zipcode_map/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestIDKey))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	header := rec.Header().Get(HeaderRequestID)
	if _, err := uuid.Parse(header); err != nil {
		t.Fatalf("expected uuid request id, got %q", header)
	}
	if rec.Body.String() != header {
		t.Fatalf("expected context id %q to match header, got %q", header, rec.Body.String())
	}
}

func TestRequestIDReusesValidIncomingID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Header().Get(HeaderRequestID) != incoming {
		t.Fatalf("expected %q, got %q", incoming, rec.Header().Get(HeaderRequestID))
	}
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	limiter := NewPerMinuteRateLimiter(1, 2, logger.NewWithWriter("production", io.Discard))
	engine := gin.New()
	engine.Use(limiter.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		engine.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected burst of 2 to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request to be limited, got %d", codes[2])
	}
}

func TestHandleErrorMapsDomainErrors(t *testing.T) {
	engine := gin.New()
	engine.GET("/upstream", func(c *gin.Context) {
		HandleError(c, apperr.Upstream("zipcode lookup failed", errors.New("secret cause")))
	})
	engine.GET("/plain", func(c *gin.Context) {
		HandleError(c, errors.New("boom"))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upstream", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"error":"zipcode lookup failed"}` {
		t.Fatalf("expected cause to stay hidden, got %s", body)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
