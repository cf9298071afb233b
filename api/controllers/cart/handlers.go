package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swanstudios/training-storefront/api/middleware"
	"github.com/swanstudios/training-storefront/api/responses"
	"github.com/swanstudios/training-storefront/api/validators"
	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// ActiveCart returns the owner's active cart, creating one on first use.
func ActiveCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := ownerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetOrCreateActiveCart(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, resolution, err := svc.GetCart(r.Context(), record.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, resolution))
	}
}

// FetchCart returns a cart by id with resolved totals.
func FetchCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, resolution, err := ownedCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record, resolution))
	}
}

// AddItem adds a catalog entry to the cart.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, _, err := ownedCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err = svc.AddItem(r.Context(), record.ID, payload.CatalogEntryID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, persistedResolution(record)))
	}
}

// UpdateItemQuantity sets a line's quantity; zero removes it.
func UpdateItemQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, _, err := ownedCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err = svc.UpdateQuantity(r.Context(), record.ID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, persistedResolution(record)))
	}
}

// RemoveItem deletes a line from the cart.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, _, err := ownedCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err = svc.RemoveItem(r.Context(), record.ID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(record, persistedResolution(record)))
	}
}

// ownedCart loads the cart addressed by the URL and verifies the caller owns
// it.
func ownedCart(r *http.Request, svc cartsvc.Service) (*models.Cart, cartsvc.TotalsResolution, error) {
	ownerID, err := ownerIDFromContext(r)
	if err != nil {
		return nil, cartsvc.TotalsResolution{}, err
	}
	cartID, err := pathUUID(r, "cartID")
	if err != nil {
		return nil, cartsvc.TotalsResolution{}, err
	}

	record, resolution, err := svc.GetCart(r.Context(), cartID)
	if err != nil {
		return nil, cartsvc.TotalsResolution{}, err
	}
	if record.OwnerID != ownerID {
		return nil, cartsvc.TotalsResolution{}, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another owner")
	}
	return record, resolution, nil
}

// persistedResolution reads totals straight off a cart the mutation path just
// saved. Mutations always persist both columns before returning.
func persistedResolution(record *models.Cart) cartsvc.TotalsResolution {
	resolution := cartsvc.TotalsResolution{Source: enums.TotalsSourcePersisted}
	if record.HasPersistedTotals() {
		resolution.Total = record.Total.Decimal
		resolution.TotalSessions = *record.TotalSessions
	}
	return resolution
}

func ownerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.OwnerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner context missing")
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid owner id")
	}
	return ownerID, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{name: raw})
	}
	return id, nil
}
