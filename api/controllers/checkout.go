package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swanstudios/training-storefront/api/middleware"
	"github.com/swanstudios/training-storefront/api/responses"
	"github.com/swanstudios/training-storefront/api/validators"
	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	checkoutsvc "github.com/swanstudios/training-storefront/internal/checkout"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// ChargeRequestView is the charge payload returned to the client once a cart
// is authorized for payment.
type ChargeRequestView struct {
	CartID        uuid.UUID `json:"cartId"`
	AmountCents   int64     `json:"amountCents"`
	Currency      string    `json:"currency"`
	TotalSessions int       `json:"totalSessions"`
}

// PaymentResultRequest reports a gateway outcome for a pending cart.
type PaymentResultRequest struct {
	Succeeded bool   `json:"succeeded"`
	Reference string `json:"reference" validate:"max=128"`
	Reason    string `json:"reason" validate:"max=256"`
}

// CheckoutAuthorize freezes the cart and returns the charge request.
func CheckoutAuthorize(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := checkoutCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := verifyCartOwner(r, carts, cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.AuthorizeCheckout(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ChargeRequestView{
			CartID:        req.CartID,
			AmountCents:   req.Amount,
			Currency:      req.Currency,
			TotalSessions: req.TotalSessions,
		})
	}
}

// CheckoutPaymentResult finalizes a pending cart from the gateway outcome.
func CheckoutPaymentResult(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := checkoutCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload PaymentResultRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ReportPaymentResult(r.Context(), cartID, checkoutsvc.PaymentResult{
			Succeeded: payload.Succeeded,
			Reference: payload.Reference,
			Reason:    payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}

func verifyCartOwner(r *http.Request, carts cartsvc.Service, cartID uuid.UUID) error {
	raw := middleware.OwnerIDFromContext(r.Context())
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "owner context missing")
	}
	record, _, err := carts.GetCart(r.Context(), cartID)
	if err != nil {
		return err
	}
	if record.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another owner")
	}
	return nil
}

func checkoutCartID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "cartID")
	cartID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id").
			WithDetails(map[string]any{"cartID": raw})
	}
	return cartID, nil
}
