package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart mutation operations. Every mutation runs under the
// cart's row lock and recomputes the cached totals from the full item set
// before the transaction commits, so a committed cart is never observable
// with stale totals.
type Service interface {
	GetOrCreateActiveCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, TotalsResolution, error)
	AddItem(ctx context.Context, cartID, entryID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	catalog  catalog.Loader
	resolver *TotalsResolver
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, loader catalog.Loader, resolver *TotalsResolver, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if loader == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("totals resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, catalog: loader, resolver: resolver, logg: logg}, nil
}

// GetOrCreateActiveCart returns the owner's active cart, creating one when
// none exists.
func (s *service) GetOrCreateActiveCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindActiveByOwner(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	fresh := &models.Cart{
		OwnerID: ownerID,
		Status:  enums.CartStatusActive,
	}
	// Null cached totals mean "externally seeded, needs healing". A cart
	// this service creates is empty, so its totals are known: zero.
	fresh.SetTotals(decimal.Zero, 0)
	return s.repo.Create(ctx, fresh)
}

// GetCart loads a cart for display, resolving totals through the fallback
// path so reads survive carts whose cached totals are missing.
func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, TotalsResolution, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, TotalsResolution{}, err
	}
	resolution, err := s.resolver.Resolve(ctx, cart)
	if err != nil {
		return nil, TotalsResolution{}, err
	}
	return cart, resolution, nil
}

// AddItem appends a catalog entry to the cart. Adding an entry already in
// the cart increments the existing line instead of creating a duplicate.
func (s *service) AddItem(ctx context.Context, cartID, entryID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, errInvalidQuantity(quantity)
	}

	entry, err := s.catalog.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.IsActive {
		return nil, errEntryUnavailable(entryID)
	}
	// Reject inconsistent catalog rows before they enter a cart; once a
	// line exists every recomputation would fail on it.
	if _, err := catalog.SessionsFor(entry); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].CatalogEntryID == entryID {
				cart.Items[i].Quantity += quantity
				return nil
			}
		}
		cart.Items = append(cart.Items, models.CartItem{
			CartID:            cartID,
			CatalogEntryID:    entryID,
			Quantity:          quantity,
			UnitPriceSnapshot: entry.UnitPrice,
		})
		return nil
	})
}

// UpdateQuantity sets an item's quantity. Zero removes the item.
func (s *service) UpdateQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, errInvalidQuantity(quantity)
	}
	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID != itemID {
				continue
			}
			if quantity == 0 {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			} else {
				cart.Items[i].Quantity = quantity
			}
			return nil
		}
		return errItemNotFound(itemID)
	})
}

// RemoveItem deletes an item from the cart.
func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return errItemNotFound(itemID)
	})
}

// mutate is the single write path: lock the cart, apply the change to the
// in-memory item set, recompute totals from scratch, and persist everything
// in one transaction.
func (s *service) mutate(ctx context.Context, cartID uuid.UUID, apply func(cart *models.Cart) error) (*models.Cart, error) {
	var out *models.Cart
	var totals Totals
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.LoadForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Status != enums.CartStatusActive {
			return errCartNotMutable(cart.ID, string(cart.Status))
		}

		if err := apply(cart); err != nil {
			return err
		}

		totals, err = ComputeTotals(ctx, s.catalog, cart.Items)
		if err != nil {
			return err
		}
		cart.SetTotals(totals.Total, totals.TotalSessions)

		if err := repo.Save(ctx, cart, cart.Items); err != nil {
			return err
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(s.logg.WithCartID(ctx, out.ID.String()), map[string]any{
		"total":          totals.Total.String(),
		"total_sessions": totals.TotalSessions,
	})
	s.logg.Info(ctx, "cart mutated")
	return out, nil
}
