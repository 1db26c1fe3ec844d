package telemetry

// Span names.
const (
	SpanNearbyFind       = "nearby.find"
	SpanNearbyFetch      = "nearby.fetch"
	SpanCommunityLocate  = "community.locate"
	SpanAssignOrder      = "assignment.order"
	SpanAssignUser       = "assignment.user"
	SpanAssignOrderBatch = "assignment.order_batch"
)

// Span attribute keys.
const (
	AttrRadiusKm    = "matching.radius_km"
	AttrCommunityID = "matching.community_id"
	AttrCandidates  = "matching.candidates"
	AttrResults     = "matching.results"
	AttrCacheHit    = "cache.hit"
	AttrSubjectID   = "assignment.subject_id"
	AttrOutcome     = "assignment.outcome"
	AttrBatchSize   = "assignment.batch_size"
)
