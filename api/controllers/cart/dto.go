package cart

import (
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/pkg/db/models"
)

// AddItemRequest is the payload for adding a catalog entry to a cart.
type AddItemRequest struct {
	CatalogEntryID uuid.UUID `json:"catalogEntryId" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
}

// UpdateQuantityRequest sets a cart item's quantity. Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// CartItemView is the wire representation of one cart line.
type CartItemView struct {
	ID             uuid.UUID `json:"id"`
	CatalogEntryID uuid.UUID `json:"catalogEntryId"`
	Quantity       int       `json:"quantity"`
	UnitPrice      string    `json:"unitPrice"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CartView is the wire representation of a cart with resolved totals.
type CartView struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       uuid.UUID      `json:"ownerId"`
	Status        string         `json:"status"`
	Total         string         `json:"total"`
	TotalSessions int            `json:"totalSessions"`
	TotalsSource  string         `json:"totalsSource"`
	Items         []CartItemView `json:"items"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func newCartView(record *models.Cart, resolution cartsvc.TotalsResolution) CartView {
	items := make([]CartItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, CartItemView{
			ID:             item.ID,
			CatalogEntryID: item.CatalogEntryID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPriceSnapshot.StringFixed(2),
			CreatedAt:      item.CreatedAt,
			UpdatedAt:      item.UpdatedAt,
		})
	}

	return CartView{
		ID:            record.ID,
		OwnerID:       record.OwnerID,
		Status:        string(record.Status),
		Total:         resolution.Total.StringFixed(2),
		TotalSessions: resolution.TotalSessions,
		TotalsSource:  resolution.Source.String(),
		Items:         items,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
