package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/ports"
	"github.com/samirrijal/ebtfinder/internal/pkg/geospatial"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
	"github.com/samirrijal/ebtfinder/internal/pkg/metrics"
	"github.com/samirrijal/ebtfinder/internal/pkg/telemetry"
)

// SearchOptions tunes the SearchService. Zero fields take the defaults.
type SearchOptions struct {
	DefaultRadiusMiles float64
	MaxRadiusMiles     float64
	DefaultLimit       int
	MaxLimit           int
	StorageTimeout     time.Duration
	Workers            int
	SharedCacheTTL     time.Duration
	SlowSearch         time.Duration
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.DefaultRadiusMiles <= 0 {
		o.DefaultRadiusMiles = domain.DefaultRadiusMiles
	}
	if o.MaxRadiusMiles < o.DefaultRadiusMiles {
		o.MaxRadiusMiles = max(100, o.DefaultRadiusMiles)
	}
	if o.MaxLimit <= 0 || o.MaxLimit > domain.MaxResultLimit {
		o.MaxLimit = domain.MaxResultLimit
	}
	if o.DefaultLimit <= 0 || o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = min(domain.DefaultResultLimit, o.MaxLimit)
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 2 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	// The shared tier expires in whole seconds.
	if o.SharedCacheTTL < time.Second {
		o.SharedCacheTTL = 0
	}
	return o
}

// SearchService is the location search orchestrator.
type SearchService struct {
	locations  ports.LocationRepository
	trending   *TrendingCalculator
	categories *CategoryFilter
	cache      *ResultCache
	shared     ports.CacheService
	opts       SearchOptions
}

// NewSearchService creates a SearchService. cache and shared may be nil.
func NewSearchService(
	locations ports.LocationRepository,
	trending *TrendingCalculator,
	categories *CategoryFilter,
	cache *ResultCache,
	shared ports.CacheService,
	opts SearchOptions,
) *SearchService {
	return &SearchService{
		locations:  locations,
		trending:   trending,
		categories: categories,
		cache:      cache,
		shared:     shared,
		opts:       opts.withDefaults(),
	}
}

// Categories lists the searchable categories.
func (s *SearchService) Categories() []domain.Category {
	return s.categories.Categories()
}

// Rule returns the rule configured for a category.
func (s *SearchService) Rule(cat domain.Category) (CategoryRule, bool) {
	return s.categories.Rule(cat)
}

// Options returns the effective options.
func (s *SearchService) Options() SearchOptions {
	return s.opts
}

// searchPlan is a validated, normalized query.
type searchPlan struct {
	query domain.SearchQuery
	mode  domain.SearchMode
	rule  CategoryRule
}

// Search runs a location search. Validation errors wrap
// domain.ErrInvalidQuery and are returned before any storage call. Storage
// failures wrap domain.ErrUpstreamUnavailable. If ctx expires mid-search
// the call fails with ctx.Err() unless q.BestEffort is set, in which case
// the ranking of the candidates processed so far is returned with Partial.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSearch)
	defer span.End()

	plan, err := s.plan(q)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(string(q.Mode()), "-", "invalid").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	mode, category := string(plan.mode), string(plan.query.Category)
	span.SetAttributes(
		attribute.String(telemetry.AttrSearchMode, mode),
		attribute.String(telemetry.AttrSearchCategory, category),
		attribute.Float64(telemetry.AttrSearchRadius, plan.query.RadiusMiles),
	)

	key := fingerprint(plan)
	if resp, ok := s.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrSearchCacheHit, true))
		metrics.SearchRequests.WithLabelValues(mode, category, "cache_hit").Inc()
		return resp, nil
	}

	resp, err := s.execute(ctx, plan)
	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())

	if err != nil {
		metrics.SearchRequests.WithLabelValues(mode, category, outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.FromContext(ctx).Warn("search failed",
			"mode", mode, "category", category, "error", err, "elapsed", elapsed)
		return nil, err
	}

	out := "ok"
	if resp.Partial {
		out = "partial"
	} else {
		s.store(ctx, key, resp)
	}
	metrics.SearchRequests.WithLabelValues(mode, category, out).Inc()
	if resp.TrendingFallback {
		metrics.TrendingFallbacks.Inc()
	}
	span.SetAttributes(attribute.Int(telemetry.AttrSearchResults, len(resp.Results)))

	if s.opts.SlowSearch > 0 && elapsed > s.opts.SlowSearch {
		logging.FromContext(ctx).Warn("slow search",
			"mode", mode, "category", category,
			"radius_miles", plan.query.RadiusMiles,
			"considered", resp.TotalConsidered,
			"elapsed", elapsed)
	}
	return resp, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "aborted"
	default:
		return "error"
	}
}

func (s *SearchService) plan(q domain.SearchQuery) (*searchPlan, error) {
	q.City = strings.TrimSpace(q.City)
	q.State = strings.TrimSpace(q.State)
	q.Zip = strings.TrimSpace(q.Zip)
	q.Category = domain.Category(strings.ToLower(strings.TrimSpace(string(q.Category))))
	if q.Category == "" {
		q.Category = domain.CategoryTrending
	}

	switch {
	case q.ResultLimit <= 0:
		q.ResultLimit = s.opts.DefaultLimit
	case q.ResultLimit > s.opts.MaxLimit:
		q.ResultLimit = s.opts.MaxLimit
	}

	if q.Origin != nil && !q.Origin.Valid() {
		return nil, fmt.Errorf("%w: origin: %w (%v, %v)", domain.ErrInvalidQuery, domain.ErrInvalidCoordinate, q.Origin.Lat, q.Origin.Lon)
	}

	mode := q.Mode()
	if mode == domain.ModeRadius {
		if q.Origin == nil {
			return nil, fmt.Errorf("%w: radius search requires an origin (or city/state/zip)", domain.ErrInvalidQuery)
		}
		if math.IsNaN(q.RadiusMiles) || math.IsInf(q.RadiusMiles, 0) || q.RadiusMiles < 0 {
			return nil, fmt.Errorf("%w: radius must be positive, got %v", domain.ErrInvalidQuery, q.RadiusMiles)
		}
		if q.RadiusMiles == 0 {
			q.RadiusMiles = s.opts.DefaultRadiusMiles
		}
		if q.RadiusMiles > s.opts.MaxRadiusMiles {
			return nil, fmt.Errorf("%w: radius %v exceeds maximum %v", domain.ErrInvalidQuery, q.RadiusMiles, s.opts.MaxRadiusMiles)
		}
	} else {
		q.RadiusMiles = 0
	}

	rule, err := s.categories.Effective(q.Category, q.StoreTypes, q.NamePatterns)
	if err != nil {
		return nil, err
	}
	q.StoreTypes = rule.StoreTypes
	q.NamePatterns = rule.NamePatterns

	return &searchPlan{query: q, mode: mode, rule: rule}, nil
}

func (s *SearchService) execute(ctx context.Context, p *searchPlan) (*domain.SearchResponse, error) {
	q := p.query

	candidates, err := s.retrieve(ctx, p)
	if err != nil {
		return nil, err
	}
	metrics.SearchCandidates.WithLabelValues(string(p.mode)).Observe(float64(len(candidates)))

	results, complete := s.measure(ctx, p, candidates)
	if !complete && !q.BestEffort {
		return nil, fmt.Errorf("search aborted: %w", ctx.Err())
	}

	kept := results[:0]
	for _, r := range results {
		if p.rule.Matches(&r.Location) {
			kept = append(kept, r)
		}
	}
	results = kept

	resp := &domain.SearchResponse{
		Mode:     p.mode,
		Category: q.Category,
		Partial:  !complete,
	}

	trending := q.Category == domain.CategoryTrending
	if trending {
		if err := s.applyTrending(ctx, p, results, resp); err != nil {
			return nil, err
		}
	}

	Rank(results, trending)

	resp.TotalConsidered = len(results)
	if len(results) > q.ResultLimit {
		results = results[:q.ResultLimit]
	}
	resp.Results = append([]domain.RankedResult{}, results...)
	return resp, nil
}

// retrieve asks storage for candidates, bounded by the storage timeout.
func (s *SearchService) retrieve(ctx context.Context, p *searchPlan) ([]domain.Location, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSearchRetrieve)
	defer span.End()

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	q := p.query
	var (
		locs []domain.Location
		err  error
	)
	if p.mode == domain.ModeRadius {
		var box geospatial.Bounds
		box, err = geospatial.BoundingBox(q.Origin.Lat, q.Origin.Lon, q.RadiusMiles)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		locs, err = s.locations.FindByBoundingBox(storeCtx, domain.BoundsFrom(box), p.rule.StoreTypes)
	} else {
		locs, err = s.locations.FindByExactAddress(storeCtx, q.City, q.State, q.Zip)
	}
	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("search aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: find locations: %w", domain.ErrUpstreamUnavailable, err)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrSearchCandidates, len(locs)))
	return locs, nil
}

// measure applies the precise inclusion test and computes distances on a
// bounded worker pool. It reports complete=false when ctx expired before
// every candidate was examined; only examined candidates are returned.
// Output order follows candidate order.
func (s *SearchService) measure(ctx context.Context, p *searchPlan, candidates []domain.Location) ([]domain.RankedResult, bool) {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanSearchDistance)
	defer span.End()

	type slot struct {
		done bool
		keep bool
		dist *float64
	}
	slots := make([]slot, len(candidates))

	q := p.query
	examine := func(i int) {
		loc := &candidates[i]
		sl := &slots[i]
		sl.done = true

		if p.mode == domain.ModeExact {
			if !addressMatches(loc, q) {
				return
			}
			sl.keep = true
			if q.Origin != nil && loc.Coordinates != nil {
				if d, err := geospatial.Distance(q.Origin.Lat, q.Origin.Lon, loc.Coordinates.Lat, loc.Coordinates.Lon); err == nil {
					sl.dist = &d
				}
			}
			return
		}

		if loc.Coordinates == nil {
			return
		}
		d, err := geospatial.Distance(q.Origin.Lat, q.Origin.Lon, loc.Coordinates.Lat, loc.Coordinates.Lon)
		if err != nil || !(d <= q.RadiusMiles) {
			return
		}
		sl.keep = true
		sl.dist = &d
	}

	workers := s.opts.Workers
	chunk := (len(candidates) + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < len(candidates); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(candidates))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return nil
				}
				examine(i)
			}
			return nil
		})
	}
	_ = g.Wait()

	complete := true
	out := make([]domain.RankedResult, 0, len(candidates))
	for i := range slots {
		if !slots[i].done {
			complete = false
			continue
		}
		if slots[i].keep {
			out = append(out, domain.RankedResult{Location: candidates[i], DistanceMiles: slots[i].dist})
		}
	}
	return out, complete
}

func addressMatches(loc *domain.Location, q domain.SearchQuery) bool {
	if q.City != "" && !strings.EqualFold(strings.TrimSpace(loc.Address.City), q.City) {
		return false
	}
	if q.State != "" && !strings.EqualFold(strings.TrimSpace(loc.Address.State), q.State) {
		return false
	}
	if q.Zip != "" && strings.TrimSpace(loc.Address.Zip) != q.Zip {
		return false
	}
	return true
}

// applyTrending fills TrendingScore on every result. Without an origin
// there is no local evidence, so every score is 0.
func (s *SearchService) applyTrending(ctx context.Context, p *searchPlan, results []domain.RankedResult, resp *domain.SearchResponse) error {
	scores := map[string]float64{}

	switch {
	case len(results) == 0:
	case p.query.Origin == nil || s.trending == nil:
	case ctx.Err() != nil:
		if !p.query.BestEffort {
			return fmt.Errorf("search aborted: %w", ctx.Err())
		}
		resp.Partial = true
	default:
		tctx, span := telemetry.StartSpan(ctx, telemetry.SpanSearchTrending)
		storeCtx, cancel := context.WithTimeout(tctx, s.opts.StorageTimeout)
		ids := make([]string, len(results))
		for i := range results {
			ids[i] = results[i].Location.ID
		}
		var err error
		scores, err = s.trending.Scores(storeCtx, *p.query.Origin, ids)
		cancel()
		span.End()
		if err != nil {
			if ctx.Err() != nil {
				if !p.query.BestEffort {
					return fmt.Errorf("search aborted: %w", ctx.Err())
				}
				resp.Partial = true
				scores = map[string]float64{}
			} else {
				return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
			}
		}
	}

	evidence := false
	for i := range results {
		v := scores[results[i].Location.ID]
		if v > 0 {
			evidence = true
		}
		results[i].TrendingScore = &v
	}
	resp.TrendingFallback = !evidence
	return nil
}

// fingerprint keys a normalized query. The origin is kept at full
// precision since cached distances are served as-is. Pattern order does
// not matter.
func fingerprint(p *searchPlan) string {
	q := p.query
	var b strings.Builder
	fmt.Fprintf(&b, "search:v1:%s:%s:%d", p.mode, q.Category, q.ResultLimit)
	if q.Origin != nil {
		fmt.Fprintf(&b, ":o=%v,%v", q.Origin.Lat, q.Origin.Lon)
	}
	if p.mode == domain.ModeRadius {
		fmt.Fprintf(&b, ":r=%g", q.RadiusMiles)
	} else {
		fmt.Fprintf(&b, ":a=%s|%s|%s", strings.ToLower(q.City), strings.ToLower(q.State), q.Zip)
	}
	fmt.Fprintf(&b, ":t=%s:n=%s", sortedJoin(q.StoreTypes), sortedJoin(q.NamePatterns))
	return b.String()
}

func sortedJoin(in []string) string {
	cp := append([]string(nil), in...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

func (s *SearchService) cached(ctx context.Context, key string) (*domain.SearchResponse, bool) {
	if resp, ok := s.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("search_local").Inc()
		return resp, true
	}
	metrics.CacheMisses.WithLabelValues("search_local").Inc()

	if s.shared == nil || s.opts.SharedCacheTTL <= 0 {
		return nil, false
	}
	data, err := s.shared.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("search_shared").Inc()
		return nil, false
	}
	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		metrics.CacheMisses.WithLabelValues("search_shared").Inc()
		return nil, false
	}
	if resp.Results == nil {
		resp.Results = []domain.RankedResult{}
	}
	metrics.CacheHits.WithLabelValues("search_shared").Inc()
	s.cache.Set(key, &resp)
	return &resp, true
}

func (s *SearchService) store(ctx context.Context, key string, resp *domain.SearchResponse) {
	s.cache.Set(key, resp)
	if s.shared == nil || s.opts.SharedCacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.shared.Set(ctx, key, data, int(s.opts.SharedCacheTTL/time.Second)); err != nil {
		logging.FromContext(ctx).Debug("shared cache set failed", "error", err)
	}
}
