package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  total TEXT,
  total_sessions INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`
	activeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS carts_owner_active_uniq
  ON carts (owner_id) WHERE status = 'active';`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  catalog_entry_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_snapshot TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(carts).Error)
	require.NoError(t, gdb.Exec(activeIndex).Error)
	require.NoError(t, gdb.Exec(cartItems).Error)
	return gdb
}

func createCart(t *testing.T, gdb *gorm.DB, owner uuid.UUID, status enums.CartStatus, created time.Time) *models.Cart {
	t.Helper()

	cart := &models.Cart{
		ID:        uuid.New(),
		OwnerID:   owner,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, gdb.Create(cart).Error)
	return cart
}

func createCartItem(t *testing.T, gdb *gorm.DB, cart *models.Cart, entryID uuid.UUID, qty int, price string, created time.Time) *models.CartItem {
	t.Helper()

	item := &models.CartItem{
		ID:                uuid.New(),
		CartID:            cart.ID,
		CatalogEntryID:    entryID,
		Quantity:          qty,
		UnitPriceSnapshot: decimal.RequireFromString(price),
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	require.NoError(t, gdb.Create(item).Error)
	return item
}

func TestRepositorySaveReconcilesItems(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	now := time.Now().UTC()
	cart := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now)
	kept := createCartItem(t, gdb, cart, uuid.New(), 1, "75.00", now)
	dropped := createCartItem(t, gdb, cart, uuid.New(), 2, "40.00", now.Add(time.Second))

	kept.Quantity = 3
	added := models.CartItem{
		CatalogEntryID:    uuid.New(),
		Quantity:          1,
		UnitPriceSnapshot: decimal.RequireFromString("120.00"),
	}
	added.ID = uuid.New()
	cart.SetTotals(decimal.RequireFromString("345.00"), 36)

	require.NoError(t, repo.Save(ctx, cart, []models.CartItem{*kept, added}))

	reloaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)
	assert.True(t, reloaded.HasPersistedTotals())
	assert.Equal(t, "345", reloaded.Total.Decimal.String())
	require.NotNil(t, reloaded.TotalSessions)
	assert.Equal(t, 36, *reloaded.TotalSessions)

	byID := map[uuid.UUID]models.CartItem{}
	for _, item := range reloaded.Items {
		byID[item.ID] = item
	}
	require.Contains(t, byID, kept.ID)
	assert.Equal(t, 3, byID[kept.ID].Quantity)
	assert.True(t, byID[kept.ID].UnitPriceSnapshot.Equal(decimal.RequireFromString("75.00")))
	require.Contains(t, byID, added.ID)
	assert.NotContains(t, byID, dropped.ID)
}

func TestRepositorySaveInsertsItemWithAssignedID(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	now := time.Now().UTC()
	cart := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now)

	// Callers may assign the row id before the item has ever been
	// persisted; Save must insert it, not let the quantity update match
	// nothing and walk away.
	item := models.CartItem{
		CatalogEntryID:    uuid.New(),
		Quantity:          2,
		UnitPriceSnapshot: decimal.RequireFromString("75.00"),
	}
	item.ID = uuid.New()
	cart.SetTotals(decimal.RequireFromString("150.00"), 16)

	require.NoError(t, repo.Save(ctx, cart, []models.CartItem{item}))

	reloaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, item.ID, reloaded.Items[0].ID)
	assert.Equal(t, 2, reloaded.Items[0].Quantity)
}

func TestRepositorySaveQuantityOnlyUpdateKeepsSnapshot(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	now := time.Now().UTC()
	cart := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now)
	item := createCartItem(t, gdb, cart, uuid.New(), 2, "50.00", now)

	// Even if a caller hands back a mutated snapshot, Save only writes the
	// quantity column for surviving rows.
	item.Quantity = 5
	item.UnitPriceSnapshot = decimal.RequireFromString("1.00")
	require.NoError(t, repo.Save(ctx, cart, []models.CartItem{*item}))

	reloaded, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 5, reloaded.Items[0].Quantity)
	assert.True(t, reloaded.Items[0].UnitPriceSnapshot.Equal(decimal.RequireFromString("50.00")))
}

func TestRepositoryFindActiveByOwner(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	owner := uuid.New()
	now := time.Now().UTC()
	createCart(t, gdb, owner, enums.CartStatusCompleted, now.Add(-time.Hour))
	active := createCart(t, gdb, owner, enums.CartStatusActive, now)

	found, err := repo.FindActiveByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	strangerID := uuid.New()
	_, err = repo.FindActiveByOwner(ctx, strangerID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	details, ok := coded.Details().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, strangerID.String(), details["owner_id"])
}

func TestRepositoryHealTotalsDoesNotClobber(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	now := time.Now().UTC()
	missing := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now)
	settled := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now)
	settled.SetTotals(decimal.RequireFromString("200.00"), 10)
	require.NoError(t, gdb.Save(settled).Error)

	heal := Totals{Total: decimal.RequireFromString("99.00"), TotalSessions: 9}
	require.NoError(t, repo.HealTotals(ctx, missing.ID, heal))
	require.NoError(t, repo.HealTotals(ctx, settled.ID, heal))

	healed, err := repo.FindByID(ctx, missing.ID)
	require.NoError(t, err)
	require.True(t, healed.HasPersistedTotals())
	assert.Equal(t, "99", healed.Total.Decimal.String())

	untouched, err := repo.FindByID(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", untouched.Total.Decimal.String())
	assert.Equal(t, 10, *untouched.TotalSessions)
}

func TestRepositoryListActiveWithItems(t *testing.T) {
	gdb := setupCartTestDB(t)
	repo := NewRepository(gdb, 0)
	ctx := context.Background()

	now := time.Now().UTC()
	older := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now.Add(-2*time.Hour))
	createCartItem(t, gdb, older, uuid.New(), 1, "75.00", now.Add(-2*time.Hour))
	newer := createCart(t, gdb, uuid.New(), enums.CartStatusActive, now.Add(-time.Hour))
	createCart(t, gdb, uuid.New(), enums.CartStatusPending, now)

	carts, err := repo.ListActiveWithItems(ctx, 10)
	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, older.ID, carts[0].ID)
	assert.Equal(t, newer.ID, carts[1].ID)
	require.Len(t, carts[0].Items, 1)

	limited, err := repo.ListActiveWithItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, older.ID, limited[0].ID)
}
