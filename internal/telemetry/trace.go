package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// This is a convenience wrapper around otel.Tracer().Start() with common patterns.
//
// Usage in services:
//
//	ctx, span := telemetry.StartSpan(ctx, "campusapi/services/iam", "iam.Login",
//	    attribute.String(telemetry.AttrAuthMethod, "password"),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
// This is a convenience wrapper to ensure consistent error recording.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Use for business events such as principal creation or revocation.
//
// Example:
//
//	telemetry.AddEvent(span, "principal.created",
//	    attribute.String(telemetry.AttrPrincipalRole, "staff"),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AnnotatePrincipal tags the active span, if any, with the authenticated principal.
func AnnotatePrincipal(ctx context.Context, id, role string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String(AttrPrincipalID, id),
		attribute.String(AttrPrincipalRole, role),
	)
}

// Common attribute keys for campusapi spans
const (
	AttrPrincipalID   = "principal.id"
	AttrPrincipalRole = "principal.role"
	AttrProvider      = "principal.provider"

	AttrAuthMethod  = "auth.method"
	AttrAuthOutcome = "auth.outcome"

	AttrTokenID           = "token.id"
	AttrRevocationBackend = "revocation.backend"
)
