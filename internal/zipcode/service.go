package zipcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zipcode_map/platform/apperr"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

const userAgent = "ZipcodeMap/1.0"

// ErrNoPlaces is returned when the API answers without any place.
var ErrNoPlaces = errors.New("no places returned for postal code")

type Service struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewService builds the zippopotam client. A zero timeout leaves the
// transport defaults in charge.
func NewService(cfg config.ZipcodeConfig, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		client:  &http.Client{Timeout: cfg.GetZipcodeAPITimeout()},
		baseURL: strings.TrimRight(cfg.GetZipcodeAPIBaseURL(), "/"),
		log:     log,
		metrics: m,
	}
}

// URL returns the endpoint queried for source and zip.
func (s *Service) URL(source, zip string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, url.PathEscape(source), url.PathEscape(zip))
}

// Lookup fetches every place the API knows for the postal code.
func (s *Service) Lookup(ctx context.Context, source, zip string) (Lookup, error) {
	const op = "zipcode.Lookup"

	reqURL := s.URL(source, zip)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Lookup{}, apperr.Wrap(apperr.KindInternal, "failed to build zipcode request", err).WithOp(op)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.observe(metrics.OutcomeFailed, start)
		s.log.UpstreamError("zippopotam", reqURL, 0, err)
		return Lookup{}, apperr.Upstream("zipcode service unavailable", err).WithOp(op)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		s.observe(metrics.OutcomeNotFound, start)
		return Lookup{}, apperr.Wrap(apperr.KindNotFound, "postal code not found", ErrNoPlaces).WithOp(op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.observe(metrics.OutcomeFailed, start)
		statusErr := fmt.Errorf("upstream api error: %d", resp.StatusCode)
		s.log.UpstreamError("zippopotam", reqURL, resp.StatusCode, statusErr)
		return Lookup{}, apperr.Upstream("zipcode service error", statusErr).WithOp(op)
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		s.observe(metrics.OutcomeFailed, start)
		s.log.UpstreamError("zippopotam", reqURL, resp.StatusCode, err)
		return Lookup{}, apperr.Upstream("invalid zipcode payload", err).WithOp(op)
	}

	s.observe(metrics.OutcomeResolved, start)
	return raw.toLookup(), nil
}

// LookupPlace returns the first place for the postal code. An empty list
// is reported as ErrNoPlaces instead of indexing blindly.
func (s *Service) LookupPlace(ctx context.Context, source, zip string) (Place, error) {
	result, err := s.Lookup(ctx, source, zip)
	if err != nil {
		return Place{}, err
	}
	if len(result.Places) == 0 {
		return Place{}, apperr.Wrap(apperr.KindNotFound, "postal code not found", ErrNoPlaces).WithOp("zipcode.LookupPlace")
	}
	return result.Places[0], nil
}

func (s *Service) observe(outcome string, start time.Time) {
	s.metrics.ObserveUpstream(outcome, time.Since(start))
}
