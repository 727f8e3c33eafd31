package shared

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// TracerName prefixes every service tracer.
const TracerName = "github.com/vsinha/mrpcore/"

// EndSpan records err on span, tagging it with the stable error code, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, entities.ErrorCode(err))
	}
	span.End()
}

// Publish delivers events after a commit. Failures are logged and dropped:
// the state change is already durable.
func Publish(ctx context.Context, publisher events.Publisher, evts ...events.Event) {
	if publisher == nil || len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		log.Warn().Err(err).Int("events", len(evts)).Str("first", evts[0].Type()).Msg("event publish failed")
	}
}
