package circulation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("issuing: %w", newError(KindPatronNotActive, "patron account is frozen"))

	assert.ErrorIs(t, err, ErrPatronNotActive)
	assert.NotErrorIs(t, err, ErrPatronNotFound)
	assert.Equal(t, KindPatronNotActive, KindOf(err))
	assert.Equal(t, "issuing: patron account is frozen", err.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("second attempt wins", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, "test", func(context.Context) error {
			calls++
			if calls == 1 {
				return errConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("two losses surface as conflict", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, "test", func(context.Context) error {
			calls++
			return fmt.Errorf("claiming: %w", errConflict)
		})
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		calls := 0
		err := retryOnConflict(ctx, "test", func(context.Context) error {
			calls++
			return ErrNoCopyAvailable
		})
		assert.ErrorIs(t, err, ErrNoCopyAvailable)
		assert.Equal(t, 1, calls)
	})

	t.Run("retry respects cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := retryOnConflict(cctx, "test", func(context.Context) error { return errConflict })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.LoanPeriodDays = 0
	p.DefaultBorrowingLimit = -1
	err := p.Validate()
	assert.ErrorContains(t, err, "loan period")
	assert.ErrorContains(t, err, "borrowing limit")

	p = DefaultPolicy()
	p.MaxRenewals = 0
	assert.NoError(t, p.Validate(), "a policy may forbid renewals")
}
