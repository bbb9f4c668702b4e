// Package concurrency carries the cooperative cancellation and timeout
// helpers shared by every port and pipeline stage (§5). It generalizes the
// teacher's utils.WithTimeout family: callers no longer reach for a single
// DefaultTimeout, they name the §5 budget they're operating under.
package concurrency

import (
	"context"
	"time"

	"georag/internal/errs"
)

const (
	// DefaultEmbedBatchTimeout is the default per-batch embedding call
	// budget (§5).
	DefaultEmbedBatchTimeout = 30 * time.Second

	// DefaultPipelineDeadline is the default overall retrieval pipeline
	// deadline (§5).
	DefaultPipelineDeadline = 10 * time.Second

	// DefaultStorageAcquireTimeout bounds how long a caller waits to
	// acquire a connection from the durable storage pool (§5).
	DefaultStorageAcquireTimeout = 30 * time.Second

	// EmbedBatchSize and SpatialBatchSize are the §5 batch boundaries at
	// which cooperative cancellation is re-checked mid-stage.
	EmbedBatchSize   = 64
	SpatialBatchSize = 256
)

// WithEmbedBatchTimeout bounds one Embedder.Embed call.
func WithEmbedBatchTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultEmbedBatchTimeout)
}

// WithPipelineDeadline bounds one retrieval pipeline invocation.
func WithPipelineDeadline(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPipelineDeadline)
}

// WithStorageAcquireTimeout bounds one pool acquisition.
func WithStorageAcquireTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultStorageAcquireTimeout)
}

// WithCustomTimeout wraps parent with an arbitrary duration, for adapters
// that carry their own env-configured budget.
func WithCustomTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

// Check is the cooperative cancellation check every port operation and
// pipeline stage performs at entry and after each batch boundary (§5). It
// translates ctx's terminal state into the project's error taxonomy rather
// than leaking a bare context error.
func Check(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.Canceled:
		return errs.New(errs.Cancelled, "operation cancelled")
	case context.DeadlineExceeded:
		return errs.New(errs.Timeout, "deadline exceeded")
	default:
		return errs.Wrap(errs.Internal, "concurrency.Check", ctx.Err())
	}
}

// CheckBatch calls Check only when index has just crossed a batch
// boundary of the given size (index is 0-based, checked after processing
// element index). Pass EmbedBatchSize or SpatialBatchSize as batchSize.
func CheckBatch(ctx context.Context, index, batchSize int) error {
	if batchSize <= 0 || (index+1)%batchSize != 0 {
		return nil
	}
	return Check(ctx)
}
