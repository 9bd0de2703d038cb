// Package estimate finds the resellers of a marketplace product and ranks
// them by delivery distance.
package estimate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oxsirene/reseller-cli/internal/correlation"
	"github.com/oxsirene/reseller-cli/internal/marketplace"
	"github.com/oxsirene/reseller-cli/internal/metrics"
	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/progress"
	"github.com/oxsirene/reseller-cli/internal/session"
)

// DefaultMaxConcurrentSellers bounds the fan-out when Config leaves it unset.
const DefaultMaxConcurrentSellers = 8

// Config tunes a run.
type Config struct {
	MaxConcurrentSellers int
	// BranchTimeout caps one seller's pipeline. Zero means no cap beyond
	// the HTTP client's own timeout.
	BranchTimeout time.Duration
}

// Results persists the last estimate set. store.ResultStore satisfies it.
type Results interface {
	Save(ctx context.Context, set model.EstimateSet) error
	Load(ctx context.Context) (*model.EstimateSet, error)
}

// SessionSource yields the session a run is configured from.
// session.Manager satisfies it.
type SessionSource interface {
	Load(ctx context.Context) (session.Session, error)
}

// StaticSession serves a fixed session.
type StaticSession session.Session

// Load returns the session.
func (s StaticSession) Load(context.Context) (session.Session, error) {
	return session.Session(s), nil
}

// Recorder counts run and seller outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RunFinished(outcome string)
	SellerFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string)    {}
func (nopRecorder) SellerFinished(string) {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGeocoder routes address lookups through g, typically the cached
// geocode.Geocoder, instead of the API.
func WithGeocoder(g Geocoder) Option {
	return func(o *Orchestrator) { o.geocoder = g }
}

// WithSink forwards progress events to sink.
func WithSink(sink progress.Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithRecorder records outcomes on r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Orchestrator drives estimate runs.
type Orchestrator struct {
	api      GeocodingAPI
	geocoder Geocoder
	results  Results
	sessions SessionSource
	cfg      Config
	sink     progress.Sink
	recorder Recorder
	now      func() time.Time
}

// GeocodingAPI is an API that can also geocode addresses.
type GeocodingAPI interface {
	API
	Geocoder
}

// New creates an Orchestrator.
func New(api GeocodingAPI, results Results, sessions SessionSource, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxConcurrentSellers <= 0 {
		cfg.MaxConcurrentSellers = DefaultMaxConcurrentSellers
	}
	o := &Orchestrator{
		api:      api,
		geocoder: api,
		results:  results,
		sessions: sessions,
		cfg:      cfg,
		sink:     progress.Discard,
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run estimates every reseller of the product at productURL. Only a failure
// to scrape the product page is fatal; a seller whose pipeline fails is
// logged and dropped. The ranked set is persisted when non-empty, otherwise
// the stored set is cleared.
func (o *Orchestrator) Run(ctx context.Context, productURL string, cid correlation.ID) (*model.EstimateSet, error) {
	log := zap.L().With(zap.String("correlation_id", cid.String()))

	sourceURL, err := marketplace.CleanURL(productURL)
	if err != nil {
		return nil, eris.Wrap(err, "estimate: clean url")
	}
	sess, err := o.sessions.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "estimate: load session")
	}
	delivery, ok := sess.DeliveryCoordinates()
	if !ok {
		return nil, ErrNoDeliveryLocation
	}

	tracker := progress.NewTracker(cid.String(), o.sink)
	tracker.Advance(ctx, 0, "Identifying resellers.")

	listing, err := o.api.ScrapProduct(ctx, cid.String(), sourceURL)
	if err != nil {
		o.recorder.RunFinished(metrics.RunFatal)
		log.Error("estimate: scrap product failed", zap.String("url", sourceURL), zap.Error(err))
		return nil, &FatalError{URL: sourceURL, Err: err}
	}
	pc := model.NewProductContext(sourceURL, cid.String(), *listing)
	sellerIDs := model.DedupeSellerIDs(listing.SellerIDs)

	tracker.Init(ctx, progress.TotalSteps(len(sellerIDs)))
	tracker.Advance(ctx, progress.StepWeight, fmt.Sprintf("%d seller(s) detected.", len(sellerIDs)))

	enriched := o.fanOut(ctx, pc, sellerIDs, NewEnricher(o.api, o.geocoder, delivery, tracker))
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "estimate: run canceled")
	}

	estimates := model.FilterComplete(enriched)
	model.SortByDistance(estimates)

	set := model.EstimateSet{
		SourceURL:     sourceURL,
		Product:       pc,
		Estimates:     estimates,
		CorrelationID: cid.String(),
		CreatedAt:     o.now().UTC(),
	}
	if err := o.results.Save(ctx, set); err != nil {
		return nil, eris.Wrap(err, "estimate: persist results")
	}
	tracker.Complete(ctx)

	outcome := metrics.RunComplete
	if set.Empty() {
		outcome = metrics.RunEmpty
	}
	o.recorder.RunFinished(outcome)
	log.Info("estimate: run complete",
		zap.String("url", sourceURL),
		zap.Int("sellers", len(sellerIDs)),
		zap.Int("estimates", len(estimates)),
	)
	return &set, nil
}

// fanOut enriches every seller concurrently. The returned slice is indexed
// by fan-out order; failed sellers leave a nil entry.
func (o *Orchestrator) fanOut(ctx context.Context, pc model.ProductContext, sellerIDs []string, enricher *Enricher) []*model.EnrichedSeller {
	out := make([]*model.EnrichedSeller, len(sellerIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentSellers)

	for i, id := range sellerIDs {
		slot := model.SlotAt(i)
		enricher.tracker.Advance(ctx, progress.StepWeight, fmt.Sprintf("Collecting seller %s.", id), progress.Group(slot.Group))

		g.Go(func() error {
			bctx := gctx
			if o.cfg.BranchTimeout > 0 {
				var cancel context.CancelFunc
				bctx, cancel = context.WithTimeout(gctx, o.cfg.BranchTimeout)
				defer cancel()
			}

			res, err := enricher.Enrich(bctx, pc, id, slot)
			if err != nil {
				o.recorder.SellerFinished(metrics.SellerFailed)
				zap.L().Warn("estimate: seller dropped",
					zap.String("correlation_id", pc.CorrelationID),
					zap.String("seller_id", id),
					zap.Error(err))
				return nil // don't fail the group
			}
			if res.Complete() {
				o.recorder.SellerFinished(metrics.SellerEstimated)
			} else {
				o.recorder.SellerFinished(metrics.SellerIncomplete)
			}

			mu.Lock()
			out[slot.Order] = &res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Last returns the stored estimate set when it was computed for productURL,
// nil otherwise.
func (o *Orchestrator) Last(ctx context.Context, productURL string) (*model.EstimateSet, error) {
	sourceURL, err := marketplace.CleanURL(productURL)
	if err != nil {
		return nil, eris.Wrap(err, "estimate: clean url")
	}
	set, err := o.results.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "estimate: load results")
	}
	if set == nil || set.SourceURL != sourceURL {
		return nil, nil
	}
	return set, nil
}
