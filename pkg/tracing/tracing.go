// Package tracing wraps otel spans for Bot and driver operations. A span
// carries the apperr code of the error it ended with, so traces can be
// filtered by timeout or stale element without parsing messages.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"webbot/pkg/apperr"
)

const (
	AttrErrorCode = "webbot.error_code"
	AttrElapsed   = "webbot.elapsed_ms"
)

type Span struct {
	span    trace.Span
	logger  *zap.Logger
	name    string
	started time.Time
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:    span,
		logger:  logger,
		name:    name,
		started: time.Now(),
	}
}

// End records err and the elapsed time, then closes the span. Errors with
// an apperr code get it as an attribute; others are tagged "internal".
func (s *Span) End(err error) {
	elapsed := time.Since(s.started)
	s.span.SetAttributes(attribute.Int64(AttrElapsed, elapsed.Milliseconds()))

	if err != nil {
		code := apperr.CodeOf(err)
		if code == "" {
			code = apperr.CodeInternal
		}

		s.span.SetAttributes(attribute.String(AttrErrorCode, code))
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
		s.logger.Debug("span failed",
			zap.String("span", s.name),
			zap.String("code", code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
