package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/aqstack/ragstore/internal/pkg/errors"
)

// IEmbedder is what the pipeline and the retrieval engine consume. Documents
// and queries go through the same call.
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimensions() int
}

type Options struct {
	Model       string
	Dimensions  int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type embedder struct {
	provider IEmbedProvider
	opts     Options
}

// NewEmbedder wraps a provider with a per-call timeout and bounded retries.
// The delay between attempts grows linearly with the attempt number so the
// total latency stays predictable.
func NewEmbedder(p IEmbedProvider, opts Options) IEmbedder {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &embedder{provider: p, opts: opts}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("model", e.opts.Model))
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		values, err := e.embedOnce(ctx, text)
		if err == nil {
			if len(values) != e.opts.Dimensions {
				// Wrong dimensionality means the deployment is misconfigured;
				// retrying cannot fix it.
				return nil, fmt.Errorf("%w: embedding dimension mismatch: got %d, want %d",
					apperr.ErrEmbeddingService, len(values), e.opts.Dimensions)
			}
			return values, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == e.opts.MaxAttempts {
			break
		}
		delay := e.opts.RetryDelay * time.Duration(attempt)
		logger.Warn("embedding attempt failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingService, ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("%w: after %d attempts: %v", apperr.ErrEmbeddingService, e.opts.MaxAttempts, lastErr)
}

func (e *embedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	return e.provider.Embed(callCtx, e.opts.Model, text)
}

func (e *embedder) ModelName() string {
	return e.opts.Model
}

func (e *embedder) Dimensions() int {
	return e.opts.Dimensions
}
