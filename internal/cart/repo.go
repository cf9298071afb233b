package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swanstudios/training-storefront/pkg/db"
	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
)

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(gdb *gorm.DB, lockTimeout time.Duration) *Repository {
	return &Repository{db: gdb, lockTimeout: lockTimeout}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, lockTimeout: r.lockTimeout}
}

// LoadForUpdate loads a cart and its items while holding a row lock on the
// cart. The lock is bounded: if another transaction holds the row longer than
// the configured lock timeout the caller gets a retryable RESOURCE_LOCKED
// error instead of queueing indefinitely.
func (r *Repository) LoadForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	tx := r.db.WithContext(ctx)

	// lock_timeout is a Postgres setting; SET LOCAL scopes it to the
	// enclosing transaction. The sqlite test dialector has no row locks,
	// so skip it there.
	if tx.Dialector.Name() == "postgres" && r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			return nil, err
		}
	}

	var cart models.Cart
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCartNotFound(id)
		}
		if db.IsLockNotAvailable(err) {
			return nil, errCartLocked(id)
		}
		return nil, err
	}

	if err := tx.
		Where("cart_id = ?", id).
		Order("created_at ASC").
		Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID loads a cart and its items without locking.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCartNotFound(id)
		}
		return nil, err
	}
	return &cart, nil
}

// FindActiveByOwner loads the owner's active cart. The partial unique index
// on (owner_id) WHERE status = 'active' guarantees at most one row.
func (r *Repository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("owner_id = ? AND status = ?", ownerID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoActiveCart(ownerID)
		}
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		if db.IsUniqueViolation(err, "carts_owner_active_uniq") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "owner already has an active cart")
		}
		return nil, err
	}
	return cart, nil
}

// Save persists the cart row and reconciles its item rows against the
// provided desired set in a single pass: quantities of surviving items are
// updated in place (row identity and price snapshots never change), new items
// are inserted, and absent items are deleted. Callers run Save inside a
// transaction opened by LoadForUpdate's lock holder.
func (r *Repository) Save(ctx context.Context, cart *models.Cart, items []models.CartItem) error {
	tx := r.db.WithContext(ctx)

	if err := tx.Save(cart).Error; err != nil {
		return err
	}

	keep := make([]uuid.UUID, 0, len(items))
	for i := range items {
		if items[i].ID != uuid.Nil {
			keep = append(keep, items[i].ID)
		}
	}

	del := tx.Where("cart_id = ?", cart.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.CartItem{}).Error; err != nil {
		return err
	}

	for i := range items {
		item := &items[i]
		item.CartID = cart.ID
		if item.ID == uuid.Nil {
			if err := tx.Create(item).Error; err != nil {
				return err
			}
			continue
		}
		res := tx.Model(&models.CartItem{}).
			Where("id = ?", item.ID).
			Update("quantity", item.Quantity)
		if res.Error != nil {
			return res.Error
		}
		// An item can carry a caller-assigned id before it exists. When
		// the update matches no row, insert it instead of dropping it on
		// the floor while the cart total still counts it.
		if res.RowsAffected == 0 {
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// HealTotals backfills the cached totals columns for a cart whose totals are
// missing. The WHERE guard keeps a stale recomputation from clobbering totals
// a concurrent mutation has already written.
func (r *Repository) HealTotals(ctx context.Context, cartID uuid.UUID, totals Totals) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND (total IS NULL OR total_sessions IS NULL)", cartID).
		Updates(map[string]interface{}{
			"total":          totals.Total,
			"total_sessions": totals.TotalSessions,
		}).Error
}

// ListActiveWithItems returns up to limit active carts with their items,
// oldest first. Used by the drift auditor.
func (r *Repository) ListActiveWithItems(ctx context.Context, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", enums.CartStatusActive).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
