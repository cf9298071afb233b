package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// TotalsResolution carries cart totals together with where they came from.
// Callers that care about integrity (checkout) inspect Source; display
// callers just use the numbers.
type TotalsResolution struct {
	Total         decimal.Decimal
	TotalSessions int
	Source        enums.TotalsSource
}

// TotalsResolver returns a cart's totals, preferring the cached columns and
// falling back to a full recomputation when either is missing. A missing
// cached total on a non-empty cart indicates an integrity bug upstream, so
// the fallback is logged loudly and the recomputed values are written back
// to self-heal the row.
type TotalsResolver struct {
	repo    CartRepository
	catalog catalog.Loader
	logg    *logger.Logger

	// healed is signalled after each write-back attempt. Nil outside tests.
	healed chan error
}

// NewTotalsResolver builds a resolver backed by the provided stack.
func NewTotalsResolver(repo CartRepository, loader catalog.Loader, logg *logger.Logger) (*TotalsResolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if loader == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &TotalsResolver{repo: repo, catalog: loader, logg: logg}, nil
}

// Resolve returns the cart's totals. The read path never fails a request
// just because the cached columns are missing.
func (r *TotalsResolver) Resolve(ctx context.Context, cart *models.Cart) (TotalsResolution, error) {
	if cart.HasPersistedTotals() {
		return TotalsResolution{
			Total:         cart.Total.Decimal,
			TotalSessions: *cart.TotalSessions,
			Source:        enums.TotalsSourcePersisted,
		}, nil
	}

	totals, err := ComputeTotals(ctx, r.catalog, cart.Items)
	if err != nil {
		return TotalsResolution{}, err
	}

	warnCtx := r.logg.WithCartID(ctx, cart.ID.String())
	r.logg.Warn(warnCtx, "cart totals missing, recomputed on read")

	// Best-effort write-back off the request path: the resolution is
	// already correct, the heal only repairs the row for future reads.
	go func(ctx context.Context) {
		err := r.repo.HealTotals(ctx, cart.ID, totals)
		if err != nil {
			r.logg.Error(ctx, "failed to heal cart totals", err)
		}
		if r.healed != nil {
			r.healed <- err
		}
	}(context.WithoutCancel(warnCtx))

	return TotalsResolution{
		Total:         totals.Total,
		TotalSessions: totals.TotalSessions,
		Source:        enums.TotalsSourceRecomputed,
	}, nil
}
