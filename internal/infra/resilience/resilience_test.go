package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
)

var fastCfg = resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), fastCfg, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), fastCfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, func() error {
		calls++
		return errors.New("persistent error")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	base := errors.New("bad request")
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), fastCfg, func() error {
		calls++
		return resilience.Permanent(base)
	})

	assert.ErrorIs(t, err, base)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_DoesNotRetryValidation(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), fastCfg, func() error {
		calls++
		return &domain.ErrValidation{Field: "amount", Message: "negative"}
	})

	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_OpenBreakerMapsToCircuitOpen(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test-remote", zap.NewNop())
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}

	for i := 0; i < 5; i++ {
		_ = resilience.Execute(context.Background(), cb, cfg, func() error {
			return errors.New("down")
		})
	}

	err := resilience.Execute(context.Background(), cb, cfg, func() error { return nil })
	var open *domain.ErrCircuitOpen
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "test-remote", open.Service)
}

func TestExecute_PermanentErrorsKeepBreakerClosed(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test-validation", nil)
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}

	for i := 0; i < 10; i++ {
		_ = resilience.Execute(context.Background(), cb, cfg, func() error {
			return &domain.ErrNotFound{Resource: "transaction", ID: "x"}
		})
	}

	assert.NoError(t, resilience.Execute(context.Background(), cb, cfg, func() error { return nil }))
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	require.NoError(t, bh.Acquire(context.Background()))
	require.NoError(t, bh.Acquire(context.Background()))
	assert.Equal(t, 2, bh.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, bh.Acquire(ctx), "third acquire should time out")

	bh.Release()
	assert.NoError(t, bh.Acquire(context.Background()))
}
