// Package dashboard serves the aggregated dashboard datasets. Every dataset
// is read through a staleness-aware cache; a miss runs the pipeline
// snapshot -> fetch -> merge -> aggregate once and caches the result.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"leaddash/internal/aggregate"
	"leaddash/internal/cache"
	"leaddash/internal/events"
	"leaddash/internal/merge"
	"leaddash/internal/metagraph"
	"leaddash/internal/metrics"
	"leaddash/internal/models"
	"leaddash/internal/telemetry"
)

// Cached datasets.
const (
	DatasetDashboard   = "dashboard"
	DatasetLatestLeads = "latestLeads"
	DatasetJourney     = "leadJourney"
)

// JourneyHours is the window of the lead journey dataset.
const JourneyHours = 72

// Fetcher reads decoded events. *events.Client satisfies it.
type Fetcher interface {
	FetchSubmissions(ctx context.Context, since *time.Time) ([]models.Submission, events.FetchStats, error)
	FetchConsensus(ctx context.Context, since *time.Time) ([]models.Consensus, events.FetchStats, error)
	Ping(ctx context.Context) error
}

// Options configures a Service.
type Options struct {
	TTL      time.Duration
	MaxStale time.Duration
	// Shared is an optional store shared by all replicas.
	Shared cache.Store
	// Prewarm lists the keys kept warm by Prewarm and Warm.
	Prewarm []cache.Key
	Now     func() time.Time
	Logger  *slog.Logger
}

// Service builds and caches the dashboard datasets.
type Service struct {
	fetcher   Fetcher
	snapshots metagraph.Provider
	prewarm   []cache.Key
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer

	dashboards *cache.Cache[models.DashboardData]
	latest     *cache.Cache[[]models.LatestLead]
	journeys   *cache.Cache[[]models.JourneyEntry]

	// builds coalesces full pipeline runs per window across the dashboard
	// and latest leads caches.
	builds singleflight.Group
}

// bundle is the output of one full pipeline run.
type bundle struct {
	data   models.DashboardData
	latest []models.LatestLead
}

// input is the raw material of one pipeline run.
type input struct {
	subs     []models.Submission
	cons     []models.Consensus
	snapshot *models.Snapshot
	meta     models.FetchMeta
}

// NewService creates a service and its caches.
func NewService(fetcher Fetcher, snapshots metagraph.Provider, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cacheOpts := func(name string) cache.Options {
		return cache.Options{
			Name:     name,
			TTL:      opts.TTL,
			MaxStale: opts.MaxStale,
			Shared:   opts.Shared,
			Now:      opts.Now,
			Logger:   logger,
		}
	}

	return &Service{
		fetcher:    fetcher,
		snapshots:  snapshots,
		prewarm:    opts.Prewarm,
		now:        opts.Now,
		logger:     logger.With("component", "dashboard"),
		tracer:     telemetry.Tracer(),
		dashboards: cache.New[models.DashboardData](cacheOpts(DatasetDashboard)),
		latest:     cache.New[[]models.LatestLead](cacheOpts(DatasetLatestLeads)),
		journeys:   cache.New[[]models.JourneyEntry](cacheOpts(DatasetJourney)),
	}
}

// DashboardKey is the cache key of the dashboard for a window.
func DashboardKey(hours int) cache.Key {
	return cache.Key{Dataset: DatasetDashboard, Window: hours}
}

// LatestLeadsKey is the cache key of the latest leads table.
func LatestLeadsKey() cache.Key {
	return cache.Key{Dataset: DatasetLatestLeads, Window: 0}
}

// JourneyKey is the cache key of the lead journey.
func JourneyKey() cache.Key {
	return cache.Key{Dataset: DatasetJourney, Window: JourneyHours}
}

// Dashboard returns the dashboard for the last hours hours, 0 meaning all
// time. A stale bundle is returned with Stale set while it is refreshed.
func (s *Service) Dashboard(ctx context.Context, hours int) (models.DashboardResponse, error) {
	res, err := s.dashboards.Fetch(ctx, DashboardKey(hours), s.dashboardLoader(hours))
	if err != nil {
		return models.DashboardResponse{}, err
	}
	return models.DashboardResponse{
		DashboardData: res.Data,
		Hours:         hours,
		FetchedAt:     s.now().UTC(),
		CachedAt:      res.CreatedAt.UTC(),
		Stale:         res.Stale,
	}, nil
}

// RejectionCounts returns the unfiltered rejection reason counts of the
// dashboard for a window.
func (s *Service) RejectionCounts(ctx context.Context, hours int) ([]models.ReasonCount, error) {
	resp, err := s.Dashboard(ctx, hours)
	if err != nil {
		return nil, err
	}
	return resp.RejectionCounts, nil
}

// LatestLeads returns the newest decided leads.
func (s *Service) LatestLeads(ctx context.Context) (models.LatestLeadsResponse, error) {
	leads, err := s.latestLeads(ctx)
	if err != nil {
		return models.LatestLeadsResponse{}, err
	}
	if len(leads) > aggregate.LatestLimit {
		leads = leads[:aggregate.LatestLimit]
	}
	return models.LatestLeadsResponse{
		Leads:     leads,
		Count:     len(leads),
		FetchedAt: s.now().UTC(),
	}, nil
}

// LeadSearch returns at most limit of the newest decided leads.
func (s *Service) LeadSearch(ctx context.Context, limit int) (models.LeadSearchResponse, error) {
	leads, err := s.latestLeads(ctx)
	if err != nil {
		return models.LeadSearchResponse{}, err
	}
	total := len(leads)
	if limit > 0 && limit < total {
		leads = leads[:limit]
	}
	return models.LeadSearchResponse{
		Results:  leads,
		Total:    total,
		Returned: len(leads),
	}, nil
}

// LeadJourney returns every merged lead of the last JourneyHours hours.
func (s *Service) LeadJourney(ctx context.Context) (models.JourneyResponse, error) {
	res, err := s.journeys.Fetch(ctx, JourneyKey(), s.journeyLoader())
	if err != nil {
		return models.JourneyResponse{}, err
	}
	return models.JourneyResponse{
		Entries:   res.Data,
		Count:     len(res.Data),
		Hours:     JourneyHours,
		FetchedAt: s.now().UTC(),
	}, nil
}

// Ping checks the event store.
func (s *Service) Ping(ctx context.Context) error {
	return s.fetcher.Ping(ctx)
}

// Prewarm starts loads for configured keys that are not cached yet. It
// returns immediately with the number of loads started.
func (s *Service) Prewarm() int {
	var dash, latest, journey []cache.Key
	for _, key := range s.prewarm {
		switch key.Dataset {
		case DatasetDashboard:
			dash = append(dash, key)
		case DatasetLatestLeads:
			latest = append(latest, LatestLeadsKey())
		case DatasetJourney:
			journey = append(journey, JourneyKey())
		default:
			s.logger.Warn("unknown prewarm dataset", "key", key.String())
		}
	}

	started := s.dashboards.Prewarm(dash, func(k cache.Key) cache.Loader[models.DashboardData] {
		return s.dashboardLoader(k.Window)
	})
	started += s.latest.Prewarm(latest, func(cache.Key) cache.Loader[[]models.LatestLead] {
		return s.latestLoader()
	})
	started += s.journeys.Prewarm(journey, func(cache.Key) cache.Loader[[]models.JourneyEntry] {
		return s.journeyLoader()
	})
	return started
}

// Warm starts refreshes for configured keys that are missing or stale. It
// returns immediately with the number of refreshes started.
func (s *Service) Warm() int {
	started := 0
	for _, key := range s.prewarm {
		switch key.Dataset {
		case DatasetDashboard:
			started += warm(s.dashboards, key, s.dashboardLoader(key.Window))
		case DatasetLatestLeads:
			started += warm(s.latest, LatestLeadsKey(), s.latestLoader())
		case DatasetJourney:
			started += warm(s.journeys, JourneyKey(), s.journeyLoader())
		}
	}
	return started
}

func warm[T any](c *cache.Cache[T], key cache.Key, load cache.Loader[T]) int {
	if c.State(key) == cache.StateFresh {
		return 0
	}
	if c.Refresh(key, load) {
		return 1
	}
	return 0
}

// AgeSources returns the caches for the entry age collector.
func (s *Service) AgeSources() []metrics.AgeSource {
	return []metrics.AgeSource{s.dashboards, s.latest, s.journeys}
}

// Clear drops every cached dataset.
func (s *Service) Clear() {
	s.dashboards.Clear()
	s.latest.Clear()
	s.journeys.Clear()
}

// Wait blocks until every background refresh has finished.
func (s *Service) Wait(ctx context.Context) error {
	if err := s.dashboards.Wait(ctx); err != nil {
		return err
	}
	if err := s.latest.Wait(ctx); err != nil {
		return err
	}
	return s.journeys.Wait(ctx)
}

// Close cancels background refreshes and waits for them.
func (s *Service) Close() {
	s.dashboards.Close()
	s.latest.Close()
	s.journeys.Close()
}

func (s *Service) latestLeads(ctx context.Context) ([]models.LatestLead, error) {
	res, err := s.latest.Fetch(ctx, LatestLeadsKey(), s.latestLoader())
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// dashboardLoader builds the dashboard for a window. The all-time build also
// fills the latest leads cache from the same events.
func (s *Service) dashboardLoader(hours int) cache.Loader[models.DashboardData] {
	return func(ctx context.Context) (models.DashboardData, error) {
		b, err := s.build(ctx, hours)
		if err != nil {
			return models.DashboardData{}, err
		}
		if hours == 0 {
			s.latest.Set(LatestLeadsKey(), b.latest)
		}
		return b.data, nil
	}
}

// latestLoader runs the all-time build and fills the all-time dashboard from
// the same events.
func (s *Service) latestLoader() cache.Loader[[]models.LatestLead] {
	return func(ctx context.Context) ([]models.LatestLead, error) {
		b, err := s.build(ctx, 0)
		if err != nil {
			return nil, err
		}
		s.dashboards.Set(DashboardKey(0), b.data)
		return b.latest, nil
	}
}

func (s *Service) journeyLoader() cache.Loader[[]models.JourneyEntry] {
	return func(ctx context.Context) ([]models.JourneyEntry, error) {
		start := time.Now()
		ctx, span := s.tracer.Start(ctx, "dashboard.journey",
			trace.WithAttributes(attribute.Int("hours", JourneyHours)))
		defer span.End()

		in, err := s.collect(ctx, JourneyHours)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		merged := s.merge(ctx, in)
		entries := aggregate.Journey(merged.Leads)
		metrics.AggregationDuration.WithLabelValues(DatasetJourney).Observe(time.Since(start).Seconds())
		return entries, nil
	}
}

// build runs the full pipeline for a window. Concurrent builds of the same
// window share one run.
func (s *Service) build(ctx context.Context, hours int) (bundle, error) {
	v, err, _ := s.builds.Do(strconv.Itoa(hours), func() (any, error) {
		return s.runBuild(ctx, hours)
	})
	if err != nil {
		return bundle{}, err
	}
	return v.(bundle), nil
}

func (s *Service) runBuild(ctx context.Context, hours int) (bundle, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "dashboard.build",
		trace.WithAttributes(attribute.Int("hours", hours)))
	defer span.End()

	in, err := s.collect(ctx, hours)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return bundle{}, err
	}
	merged := s.merge(ctx, in)

	_, aggSpan := s.tracer.Start(ctx, "aggregate")
	b := bundle{
		data: aggregate.All(aggregate.Input{
			Merged:    merged,
			Consensus: in.cons,
			Snapshot:  in.snapshot,
			Meta:      in.meta,
		}),
	}
	if hours == 0 {
		b.latest = aggregate.LatestLeads(in.cons, in.subs, in.snapshot, aggregate.LatestScanSize)
	}
	aggSpan.End()

	elapsed := time.Since(start)
	metrics.AggregationDuration.WithLabelValues(DatasetDashboard).Observe(elapsed.Seconds())
	s.logger.Info("dashboard built",
		"hours", hours,
		"leads", len(merged.Leads),
		"submissions", in.meta.SubmissionRows,
		"consensus", in.meta.ConsensusRows,
		"skipped_batches", in.meta.SkippedBatches,
		"duration", elapsed,
	)
	return b, nil
}

// collect loads the snapshot and both event streams concurrently. A missing
// snapshot is not an error; the data is then left unfiltered.
func (s *Service) collect(ctx context.Context, hours int) (input, error) {
	var since *time.Time
	if hours > 0 {
		t := s.now().Add(-time.Duration(hours) * time.Hour)
		since = &t
	}

	var (
		in                 input
		subStats, conStats events.FetchStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := s.snapshots.Snapshot(gctx)
		if err != nil {
			s.logger.Warn("metagraph snapshot unavailable", "error", err)
		}
		in.snapshot = snap
		return nil
	})
	g.Go(func() error {
		fctx, span := s.tracer.Start(gctx, "events.fetch",
			trace.WithAttributes(attribute.String("event_type", models.EventSubmission)))
		defer span.End()
		subs, stats, err := s.fetcher.FetchSubmissions(fctx, since)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to fetch submissions: %w", err)
		}
		in.subs, subStats = subs, stats
		return nil
	})
	g.Go(func() error {
		fctx, span := s.tracer.Start(gctx, "events.fetch",
			trace.WithAttributes(attribute.String("event_type", models.EventConsensusResult)))
		defer span.End()
		cons, stats, err := s.fetcher.FetchConsensus(fctx, since)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to fetch consensus results: %w", err)
		}
		in.cons, conStats = cons, stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return input{}, err
	}

	in.meta = models.FetchMeta{
		SubmissionRows:    subStats.Rows,
		ConsensusRows:     conStats.Rows,
		SkippedBatches:    subStats.SkippedBatches + conStats.SkippedBatches,
		Truncated:         subStats.Truncated || conStats.Truncated,
		SnapshotAvailable: in.snapshot.ActiveMiners() != nil,
	}
	return in, nil
}

func (s *Service) merge(ctx context.Context, in input) merge.Result {
	_, span := s.tracer.Start(ctx, "merge")
	defer span.End()
	res := merge.Merge(in.subs, in.cons, in.snapshot.ActiveMiners())
	span.SetAttributes(
		attribute.Int("leads", len(res.Leads)),
		attribute.Int("submissions", res.FilteredSubmissions),
	)
	return res
}
