package telemetry

// Span names for the search pipeline.
const (
	SpanSearch          = "search"
	SpanSearchRetrieve  = "search.retrieve"
	SpanSearchDistance  = "search.distance_filter"
	SpanSearchTrending  = "search.trending"
	SpanClickRecord     = "clicks.record"
	SpanClickPrune      = "clicks.prune"
	SpanLocationsUpsert = "locations.upsert_batch"
)

// Span attribute keys.
const (
	AttrSearchMode       = "search.mode"
	AttrSearchCategory   = "search.category"
	AttrSearchRadius     = "search.radius_miles"
	AttrSearchCandidates = "search.candidates"
	AttrSearchResults    = "search.results"
	AttrSearchCacheHit   = "search.cache_hit"
	AttrLocationID       = "location.id"
)
