package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/pkg/config"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// DriftReport describes one active cart whose cached totals disagree with a
// fresh recomputation over its items.
type DriftReport struct {
	CartID            uuid.UUID           `json:"cartId"`
	OwnerID           uuid.UUID           `json:"ownerId"`
	PersistedTotal    decimal.NullDecimal `json:"persistedTotal"`
	ComputedTotal     decimal.Decimal     `json:"computedTotal"`
	PersistedSessions *int                `json:"persistedSessions"`
	ComputedSessions  int                 `json:"computedSessions"`
}

// Scanner sweeps active carts and reports totals drift. It never mutates
// cart state: repair stays a human decision, the scanner only surfaces the
// evidence.
type Scanner struct {
	repo    cart.CartRepository
	catalog catalog.Loader
	epsilon decimal.Decimal
	limit   int
	logg    *logger.Logger
}

// NewScanner builds a drift scanner from the audit configuration.
func NewScanner(repo cart.CartRepository, loader catalog.Loader, cfg config.AuditConfig, logg *logger.Logger) (*Scanner, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if loader == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	epsilon, err := decimal.NewFromString(cfg.DriftEpsilon)
	if err != nil {
		return nil, fmt.Errorf("invalid drift epsilon %q: %w", cfg.DriftEpsilon, err)
	}
	return &Scanner{
		repo:    repo,
		catalog: loader,
		epsilon: epsilon,
		limit:   cfg.ScanLimit,
		logg:    logg,
	}, nil
}

// ScanForDrift recomputes totals for a batch of active carts and returns a
// report per drifted cart. Carts whose items reference broken catalog rows
// are reported too: a cart that cannot be recomputed is in worse shape than
// one that merely drifted.
func (s *Scanner) ScanForDrift(ctx context.Context) ([]DriftReport, error) {
	carts, err := s.repo.ListActiveWithItems(ctx, s.limit)
	if err != nil {
		return nil, err
	}

	var reports []DriftReport
	for i := range carts {
		report, drifted := s.inspect(ctx, &carts[i])
		if !drifted {
			continue
		}
		reports = append(reports, report)

		driftCtx := s.logg.WithFields(s.logg.WithCartID(ctx, report.CartID.String()), map[string]any{
			"persisted_total":    nullDecimalString(report.PersistedTotal),
			"computed_total":     report.ComputedTotal.String(),
			"computed_sessions":  report.ComputedSessions,
			"persisted_sessions": intPtrValue(report.PersistedSessions),
		})
		s.logg.Warn(driftCtx, "cart totals drift detected")
	}

	scanCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned": len(carts),
		"drifted": len(reports),
	})
	s.logg.Info(scanCtx, "drift scan finished")
	return reports, nil
}

func (s *Scanner) inspect(ctx context.Context, c *models.Cart) (DriftReport, bool) {
	report := DriftReport{
		CartID:            c.ID,
		OwnerID:           c.OwnerID,
		PersistedTotal:    c.Total,
		PersistedSessions: c.TotalSessions,
	}

	totals, err := cart.ComputeTotals(ctx, s.catalog, c.Items)
	if err != nil {
		s.logg.Error(s.logg.WithCartID(ctx, c.ID.String()), "cart totals cannot be recomputed", err)
		return report, true
	}
	report.ComputedTotal = totals.Total
	report.ComputedSessions = totals.TotalSessions

	// Missing cached totals count as drift: the mutation path always
	// persists both, so a hole means some writer bypassed it.
	if !c.HasPersistedTotals() {
		return report, true
	}
	if c.Total.Decimal.Sub(totals.Total).Abs().GreaterThan(s.epsilon) {
		return report, true
	}
	if *c.TotalSessions != totals.TotalSessions {
		return report, true
	}
	return report, false
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "null"
	}
	return d.Decimal.String()
}

func intPtrValue(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}
