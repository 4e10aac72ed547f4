package circulation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/erazemk/izposoja/internal/store"
)

// lostRace reports whether an attempt failed because another request got
// there first, either through a compare-and-set miss or a held write lock.
func lostRace(err error) bool {
	return errors.Is(err, errConflict) || store.IsBusy(err)
}

// retryOnConflict runs fn and, if it lost a race, runs it once more. A second
// loss surfaces as ErrConcurrencyConflict; every other error fails fast.
func retryOnConflict(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if !lostRace(err) {
		return err
	}

	slog.Warn("circulation conflict, retrying", "op", op, "error", err)
	if err := ctx.Err(); err != nil {
		return err
	}

	err = fn(ctx)
	if lostRace(err) {
		return ErrConcurrencyConflict
	}
	return err
}
