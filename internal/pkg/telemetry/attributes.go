package telemetry

import "go.opentelemetry.io/otel/attribute"

// TracerName is the instrumentation scope for spans emitted by this service.
const TracerName = "github.com/samirrijal/streetrisk"

// Span names.
const (
	SpanScoringPass   = "scoring.pass"
	SpanFetchGeometry = "overpass.fetch"
	SpanLoadSamples   = "samples.load"
)

// Attribute keys recorded on scoring spans.
var (
	AttrRunReason     = attribute.Key("streetrisk.run.reason")
	AttrWayCount      = attribute.Key("streetrisk.ways")
	AttrFragmentCount = attribute.Key("streetrisk.fragments")
	AttrStreetCount   = attribute.Key("streetrisk.streets")
	AttrSampleCount   = attribute.Key("streetrisk.samples")
	AttrEndpoint      = attribute.Key("overpass.endpoint")
	AttrDegraded      = attribute.Key("streetrisk.degraded")
)
