package telemetry

// Span names used for instrumentation.
const (
	SpanAnalyze         = "analysis.analyze"
	SpanCompute         = "analysis.compute"
	SpanDecompose       = "analysis.decompose"
	SpanDifferentiate   = "analysis.differentiate"
	SpanWriteArtifacts  = "analysis.write_artifacts"
	SpanPersist         = "analysis.persist"
	SpanPublishComplete = "analysis.publish_completed"
)

// Span attribute keys.
const (
	AttrTrackName    = "track.name"
	AttrVariant      = "analysis.variant"
	AttrSampleCount  = "track.samples"
	AttrDroppedCount = "track.samples_dropped"
	AttrAxis         = "analysis.axis"
)

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/samirrijal/trackmotion"
