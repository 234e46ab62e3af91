package roundmetrics

import (
	"context"
	"time"
)

type noop struct{}

// NewNoop returns a RoundMetrics that discards everything.
func NewNoop() RoundMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordRoundCreated(context.Context)                                     {}
func (noop) RecordRoundCompleted(context.Context, int)                              {}
func (noop) RecordContribution(context.Context, int64)                              {}
func (noop) RecordConflictRetry(context.Context, string)                            {}
