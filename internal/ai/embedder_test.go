package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/aqstack/ragstore/internal/pkg/errors"
)

type fakeProvider struct {
	failures int
	calls    int
	vector   []float32
}

func (p *fakeProvider) Name() string {
	return "fake"
}

func (p *fakeProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("connection refused")
	}
	return p.vector, nil
}

func testOptions(dims int) Options {
	return Options{
		Model:       "test-model",
		Dimensions:  dims,
		Timeout:     time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
}

func TestEmbedderRecoversWithinRetryBudget(t *testing.T) {
	provider := &fakeProvider{failures: 2, vector: []float32{0.1, 0.2, 0.3}}
	e := NewEmbedder(provider, testOptions(3))

	values, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, values)
	require.Equal(t, 3, provider.calls)
}

func TestEmbedderFailsAfterMaxAttempts(t *testing.T) {
	provider := &fakeProvider{failures: 10, vector: []float32{0.1}}
	e := NewEmbedder(provider, testOptions(1))

	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrEmbeddingService)
	require.Equal(t, 3, provider.calls)
}

func TestEmbedderDimensionMismatchDoesNotRetry(t *testing.T) {
	provider := &fakeProvider{vector: []float32{0.1, 0.2}}
	e := NewEmbedder(provider, testOptions(768))

	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrEmbeddingService)
	require.Contains(t, err.Error(), "dimension mismatch")
	require.Equal(t, 1, provider.calls)
}

func TestEmbedderStopsOnCanceledContext(t *testing.T) {
	provider := &fakeProvider{failures: 10, vector: []float32{0.1}}
	e := NewEmbedder(provider, testOptions(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, "hello")
	require.ErrorIs(t, err, appErr.ErrEmbeddingService)
	require.Equal(t, 1, provider.calls)
}

func TestEmbedderAccessors(t *testing.T) {
	e := NewEmbedder(&fakeProvider{}, testOptions(768))
	require.Equal(t, "test-model", e.ModelName())
	require.Equal(t, 768, e.Dimensions())
}
