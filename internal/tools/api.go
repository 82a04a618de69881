package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// Deps are the ambient dependencies handed to tool constructors.
type Deps struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Log returns the logger, or slog.Default when none is set.
func (d Deps) Log() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// CallAPI runs fn on pool inside a client span named service.operation and
// records the outcome. A nil pool runs fn on the caller's goroutine.
func CallAPI(ctx context.Context, pool *workerpool.Pool, m *instrumentation.Metrics, service, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	var err error
	if pool != nil {
		err = pool.Do(ctx, fn)
	} else {
		err = fn(ctx)
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	m.RecordAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}
