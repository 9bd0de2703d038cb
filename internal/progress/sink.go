package progress

import (
	"context"

	"go.uber.org/zap"
)

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Discard drops every event.
var Discard Sink = discard{}

// LogSink writes events to the global zap logger at debug level, or info
// for init and complete.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, e Event) {
	fields := []zap.Field{
		zap.String("correlation_id", e.CorrelationID),
		zap.String("kind", string(e.Kind)),
		zap.Int("position", e.Position),
		zap.Int("max", e.Max),
	}
	if e.Label != "" {
		fields = append(fields, zap.String("label", e.Label))
	}
	if e.GroupID != nil {
		fields = append(fields, zap.Int("group", *e.GroupID))
	}
	if e.ParentGroupID != nil {
		fields = append(fields, zap.Int("parent_group", *e.ParentGroupID))
	}
	if e.Kind == KindAdvance {
		zap.L().Debug("progress", fields...)
		return
	}
	zap.L().Info("progress", fields...)
}

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}

// FuncSink adapts a function to Sink.
type FuncSink func(ctx context.Context, e Event)

func (f FuncSink) Emit(ctx context.Context, e Event) { f(ctx, e) }
