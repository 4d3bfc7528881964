package lookup

import (
	"context"
	"sync"

	"zipcode_map/internal/events"
	"zipcode_map/platform/apperr"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/validator"
)

// DefaultResultZoom is the zoom applied when centering on a resolved place.
const DefaultResultZoom = 8

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	ResultZoom int
	Bus        events.Bus
	Validator  *validator.Validator
}

// Controller orchestrates submit, fetch and render for one page.
//
// Overlapping submissions are not ordered: every accepted submission fetches
// on its own goroutine and whichever response resolves last is what the
// panel and map center show. View writes are serialized through ui, which
// plays the role of the browser's single UI thread.
type Controller struct {
	fetcher    PlaceFetcher
	views      Views
	log        *logger.Logger
	bus        events.Bus
	val        *validator.Validator
	resultZoom int

	ui       sync.Mutex
	inflight sync.WaitGroup
}

func NewController(fetcher PlaceFetcher, views Views, log *logger.Logger, opts Options) *Controller {
	if opts.ResultZoom == 0 {
		opts.ResultZoom = DefaultResultZoom
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}

	return &Controller{
		fetcher:    fetcher,
		views:      views,
		log:        log,
		bus:        opts.Bus,
		val:        opts.Validator,
		resultZoom: opts.ResultZoom,
	}
}

// HandleSubmit validates the submission and starts the fetch without
// waiting for it. A missing source or zip shows a warning, performs no
// request and returns a validation error.
func (c *Controller) HandleSubmit(ctx context.Context, req Request) error {
	if err := c.val.Struct(req); err != nil {
		fields := validator.FailedFields(err)

		c.ui.Lock()
		c.views.Notifier.Notify(LevelWarning, MessageMissingInput)
		c.ui.Unlock()

		c.log.WithContext(ctx).Debug("lookup submission rejected", "fields", fields)
		c.publish(ctx, events.LookupRejected{
			BaseEvent: events.NewBaseEvent(),
			Source:    req.Source,
			Zip:       req.Zip,
			Fields:    fields,
		})

		return apperr.Validation(MessageMissingInput).
			WithOp("lookup.HandleSubmit").
			WithDetails(map[string][]string{"fields": fields})
	}

	// The fetch outlives the submitting request; in-flight lookups are never cancelled.
	fetchCtx := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_ = c.FetchPlace(fetchCtx, req.Source, req.Zip)
	}()

	return nil
}

// FetchPlace performs one lookup and renders it. Every failure is logged,
// sent to the console and reported to the user as a generic danger
// notification; the returned error is for callers that want the cause.
func (c *Controller) FetchPlace(ctx context.Context, source, zip string) error {
	result, err := c.fetcher.FetchPlace(ctx, source, zip)
	if err != nil {
		c.log.WithContext(ctx).Error("place lookup failed", "source", source, "zip", zip, "error", err)

		c.ui.Lock()
		c.views.Console.Log(err)
		c.views.Notifier.Notify(LevelDanger, MessageFetchFailed)
		c.ui.Unlock()

		c.publish(ctx, events.PlaceLookupFailed{
			BaseEvent: events.NewBaseEvent(),
			Source:    source,
			Zip:       zip,
			Reason:    err.Error(),
		})
		return err
	}

	c.RenderResult(result)

	c.log.WithContext(ctx).Info("place resolved", "source", source, "zip", zip, "place", result.PlaceName)
	c.publish(ctx, events.PlaceResolved{
		BaseEvent: events.NewBaseEvent(),
		Source:    source,
		Zip:       zip,
		PlaceName: result.PlaceName,
		State:     result.State,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	})
	return nil
}

// RenderResult centers the map on the place, drops a marker, reveals the
// panel and overwrites its content, in that order.
func (c *Controller) RenderResult(result PlaceResult) {
	c.ui.Lock()
	defer c.ui.Unlock()

	at := result.Position()
	c.views.Map.SetView(at, c.resultZoom, true)
	c.views.Map.AddMarker(at)
	c.views.Panel.Reveal()
	c.views.Panel.SetInfo(result)
}

// Wait blocks until every fetch started by HandleSubmit has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) publish(ctx context.Context, event events.Event) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, event)
}
