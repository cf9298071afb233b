package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
// Mutation flows go through LoadForUpdate + Save so that the cached totals
// columns and the item rows always change under the same row lock; the
// repository exposes no partial-write operations on mutable carts.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	LoadForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart, items []models.CartItem) error
	HealTotals(ctx context.Context, cartID uuid.UUID, totals Totals) error
	ListActiveWithItems(ctx context.Context, limit int) ([]models.Cart, error)
}
