package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared by the use cases.
const (
	AttrTrainNo     = attribute.Key("train.number")
	AttrPath        = attribute.Key("trip.path")
	AttrDate        = attribute.Key("trip.date")
	AttrResult      = attribute.Key("result.status")
	AttrTripCount   = attribute.Key("trip.count")
	AttrTrackStatus = attribute.Key("tracking.status")
)
