// Package guardrails provides the year lease that keeps aggregation runs from overlapping
package guardrails

import (
	"context"
	"fmt"
	"os"
	"time"

	"bestsellers/internal/modkit"
	"bestsellers/internal/platform/store"
)

// ErrLeaseHeld signals another worker owns the year already
var ErrLeaseHeld = fmt.Errorf("aggregate: year lease already held")

// MakeYearLease claims a per-year lease row (auto-reclaim via expires_at)
func MakeYearLease(
	deps modkit.Deps,
	owner string,
	ttl time.Duration,
) func(ctx context.Context, year int, do func(context.Context) error) error {
	owner = fmt.Sprintf("%s:%d", owner, os.Getpid())

	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	toInterval := func(d time.Duration) string { return fmt.Sprintf("%d seconds", int64(d/time.Second)) }

	return func(ctx context.Context, year int, do func(context.Context) error) error {
		var claimed bool
		if err := deps.PG.Tx(ctx, func(q store.RowQuerier) error {
			row := q.QueryRow(ctx, `
				INSERT INTO aggregation_leases (year, claimed_at, owner, expires_at)
				VALUES ($1, now(), $2, now() + ($3)::interval)
				ON CONFLICT (year) DO UPDATE
				   SET claimed_at = now(), owner = excluded.owner, expires_at = excluded.expires_at
				 WHERE aggregation_leases.expires_at <= now()
				RETURNING true
			`, year, owner, toInterval(ttl))
			var ok bool
			if err := row.Scan(&ok); err != nil {
				return nil // no rows -> couldn't claim
			}
			claimed = ok
			return nil
		}); err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}
		defer func() {
			// release early so a rerun does not wait out the ttl
			_, _ = deps.PG.Exec(context.WithoutCancel(ctx),
				`UPDATE aggregation_leases SET expires_at = now() WHERE year = $1 AND owner = $2`, year, owner)
		}()
		return do(ctx)
	}
}
