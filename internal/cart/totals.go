package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/pkg/db/models"
)

// Totals is a from-scratch recomputation over a cart's full item set.
type Totals struct {
	Total         decimal.Decimal
	TotalSessions int
}

// ComputeTotals recomputes both derived values over the complete item set.
// It is deliberately not incremental: incremental maintenance of the cached
// columns is what produced the original drift bugs, so every write path pays
// for a full recomputation instead.
func ComputeTotals(ctx context.Context, loader catalog.Loader, items []models.CartItem) (Totals, error) {
	totals := Totals{Total: decimal.Zero}

	for _, item := range items {
		entry, err := loader.GetByID(ctx, item.CatalogEntryID)
		if err != nil {
			return Totals{}, err
		}
		sessions, err := catalog.SessionsFor(entry)
		if err != nil {
			return Totals{}, err
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		totals.Total = totals.Total.Add(item.UnitPriceSnapshot.Mul(qty))
		totals.TotalSessions += sessions * item.Quantity
	}

	return totals, nil
}
