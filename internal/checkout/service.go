package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/pkg/config"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ChargeRequest is the immutable payload handed to the payment gateway once
// a cart has been authorized for checkout. Amount is in minor units.
type ChargeRequest struct {
	CartID        uuid.UUID
	Amount        int64
	Currency      string
	TotalSessions int
}

// PaymentResult reports the outcome of a gateway charge back to the engine.
type PaymentResult struct {
	Succeeded bool
	Reference string
	Reason    string
}

// Service guards the cart's transition into and out of payment. Authorization
// freezes the cart (active -> pending) in the same transaction that fixes the
// charge amount, so the amount sent to the gateway can never diverge from the
// cart contents it was computed over.
type Service interface {
	AuthorizeCheckout(ctx context.Context, cartID uuid.UUID) (*ChargeRequest, error)
	ReportPaymentResult(ctx context.Context, cartID uuid.UUID, result PaymentResult) error
}

type service struct {
	repo    cart.CartRepository
	tx      txRunner
	catalog catalog.Loader
	outbox  outbox.Emitter
	payment config.PaymentConfig
	logg    *logger.Logger
}

// NewService builds a checkout service backed by the provided stack.
func NewService(repo cart.CartRepository, tx txRunner, loader catalog.Loader, emitter outbox.Emitter, payment config.PaymentConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if loader == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: loader,
		outbox:  emitter,
		payment: payment,
		logg:    logg,
	}, nil
}

// AuthorizeCheckout locks the cart, fixes the charge amount, and moves the
// cart to pending. A second authorize of the same cart fails with a state
// conflict because the row is no longer active.
func (s *service) AuthorizeCheckout(ctx context.Context, cartID uuid.UUID) (*ChargeRequest, error) {
	var req *ChargeRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LoadForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if locked.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not eligible for checkout").
				WithDetails(map[string]interface{}{"cart_id": cartID.String(), "status": string(locked.Status)})
		}

		totals, source, err := s.chargeableTotals(ctx, locked)
		if err != nil {
			return err
		}
		if source == enums.TotalsSourceRecomputed {
			s.logg.Warn(s.logg.WithCartID(ctx, cartID.String()),
				"cart reached checkout without persisted totals")
		}

		amount := totals.Total.Shift(2).IntPart()
		if amount < s.payment.MinChargeCents {
			return pkgerrors.New(pkgerrors.CodeAmountTooSmall, "cart total is below the minimum chargeable amount").
				WithDetails(map[string]interface{}{
					"amount_cents":  amount,
					"minimum_cents": s.payment.MinChargeCents,
					"currency":      s.payment.Currency,
				})
		}

		locked.Status = enums.CartStatusPending
		locked.SetTotals(totals.Total, totals.TotalSessions)
		if err := repo.Save(ctx, locked, locked.Items); err != nil {
			return err
		}

		req = &ChargeRequest{
			CartID:        cartID,
			Amount:        amount,
			Currency:      s.payment.Currency,
			TotalSessions: totals.TotalSessions,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outbox.EventCheckoutAuthorized,
			AggregateType: outbox.AggregateCart,
			AggregateID:   cartID,
			Data: map[string]interface{}{
				"amountCents":   amount,
				"currency":      s.payment.Currency,
				"totalSessions": totals.TotalSessions,
				"totalsSource":  source.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	authCtx := s.logg.WithFields(s.logg.WithCartID(ctx, cartID.String()), map[string]any{
		"amount_cents": req.Amount,
		"currency":     req.Currency,
	})
	s.logg.Info(authCtx, "checkout authorized")
	return req, nil
}

// ReportPaymentResult finalizes a pending cart: success completes it, failure
// reverts it to active so the owner can retry. Both transitions only apply to
// pending carts.
func (s *service) ReportPaymentResult(ctx context.Context, cartID uuid.UUID, result PaymentResult) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LoadForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if locked.Status != enums.CartStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart has no payment in flight").
				WithDetails(map[string]interface{}{"cart_id": cartID.String(), "status": string(locked.Status)})
		}

		eventType := outbox.EventCartCompleted
		locked.Status = enums.CartStatusCompleted
		if !result.Succeeded {
			eventType = outbox.EventCheckoutReverted
			locked.Status = enums.CartStatusActive
		}
		if err := repo.Save(ctx, locked, locked.Items); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: outbox.AggregateCart,
			AggregateID:   cartID,
			Data: map[string]interface{}{
				"succeeded": result.Succeeded,
				"reference": result.Reference,
				"reason":    result.Reason,
			},
		})
	})
	if err != nil {
		return err
	}

	resCtx := s.logg.WithFields(s.logg.WithCartID(ctx, cartID.String()), map[string]any{
		"succeeded": result.Succeeded,
		"reference": result.Reference,
	})
	s.logg.Info(resCtx, "payment result recorded")
	return nil
}

// chargeableTotals resolves the totals the charge is computed from. Unlike
// the read-path resolver this runs under the cart's row lock, so a
// recomputation is persisted synchronously as part of the checkout
// transaction rather than healed in the background.
func (s *service) chargeableTotals(ctx context.Context, locked *models.Cart) (cart.Totals, enums.TotalsSource, error) {
	if locked.HasPersistedTotals() {
		return cart.Totals{
			Total:         locked.Total.Decimal,
			TotalSessions: *locked.TotalSessions,
		}, enums.TotalsSourcePersisted, nil
	}
	totals, err := cart.ComputeTotals(ctx, s.catalog, locked.Items)
	if err != nil {
		return cart.Totals{}, "", err
	}
	return totals, enums.TotalsSourceRecomputed, nil
}
