package genkit

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/trace"
)

const maxAttrLen = 256

// loggingSpanProcessor writes genkit's trace spans to the application log at debug level.
type loggingSpanProcessor struct {
	verbose bool
	logger  *slog.Logger
}

func (l *loggingSpanProcessor) OnStart(ctx context.Context, s trace.ReadWriteSpan) {
	l.logger.DebugContext(ctx, "span start", slog.String("name", s.Name()))
}

func (l *loggingSpanProcessor) OnEnd(s trace.ReadOnlySpan) {
	args := l.buildArgs(s)
	args = append(args, slog.Duration("duration", s.EndTime().Sub(s.StartTime())))
	l.logger.Debug("span end", args...)
}

func (l *loggingSpanProcessor) Shutdown(ctx context.Context) error {
	return nil
}

func (l *loggingSpanProcessor) ForceFlush(ctx context.Context) error {
	return nil
}

var _ trace.SpanProcessor = (*loggingSpanProcessor)(nil)

// buildArgs skips long attributes (prompts, full responses) unless verbose is set.
func (l *loggingSpanProcessor) buildArgs(s trace.ReadOnlySpan) []any {
	args := []any{
		slog.String("name", s.Name()),
	}
	for _, attr := range s.Attributes() {
		value := attr.Value.Emit()
		if !l.verbose && len(value) > maxAttrLen {
			continue
		}
		args = append(args, slog.String(string(attr.Key), value))
	}

	return args
}
