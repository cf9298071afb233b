package cart

import (
	"github.com/google/uuid"

	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
)

func errCartNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
		WithDetails(map[string]interface{}{"cart_id": id.String()})
}

func errNoActiveCart(ownerID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "owner has no active cart").
		WithDetails(map[string]interface{}{"owner_id": ownerID.String()})
}

func errCartLocked(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeLocked, "cart is locked by another request").
		WithDetails(map[string]interface{}{"cart_id": id.String()})
}

func errCartNotMutable(id uuid.UUID, status string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not mutable").
		WithDetails(map[string]interface{}{"cart_id": id.String(), "status": status})
}

func errInvalidQuantity(qty int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
		WithDetails(map[string]interface{}{"quantity": qty})
}

func errEntryUnavailable(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeUnavailable, "catalog entry is not available").
		WithDetails(map[string]interface{}{"catalog_entry_id": id.String()})
}

func errItemNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found").
		WithDetails(map[string]interface{}{"cart_item_id": id.String()})
}
