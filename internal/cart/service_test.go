package cart

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

func intPtr(v int) *int { return &v }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}

func fixedEntry(id uuid.UUID, sessions int, price int64) *models.CatalogEntry {
	return &models.CatalogEntry{
		ID:            id,
		Name:          "Gold Package",
		PackageKind:   enums.PackageKindFixed,
		SessionsFixed: intPtr(sessions),
		TotalSessions: sessions,
		UnitPrice:     decimal.NewFromInt(price),
		IsActive:      true,
	}
}

func recurringEntry(id uuid.UUID, perInterval, intervals int, price int64) *models.CatalogEntry {
	return &models.CatalogEntry{
		ID:                  id,
		Name:                "Silver Monthly",
		PackageKind:         enums.PackageKindRecurring,
		SessionsPerInterval: intPtr(perInterval),
		IntervalCount:       intPtr(intervals),
		TotalSessions:       perInterval * intervals,
		UnitPrice:           decimal.NewFromInt(price),
		IsActive:            true,
	}
}

// fixtureLoader serves catalog entries from a static map.
type fixtureLoader struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.CatalogEntry
}

func (l *fixtureLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
	}
	cp := *entry
	return &cp, nil
}

// memCartRepo keeps one cart in memory. Its mutex only guards state access;
// transaction-level serialization (the stand-in for the row lock) lives in
// memTxRunner so a failed transaction releases the lock like a rollback does.
type memCartRepo struct {
	mu     sync.Mutex
	cart   *models.Cart
	healed chan Totals
}

func newMemCartRepo(cart *models.Cart) *memCartRepo {
	return &memCartRepo{cart: cart, healed: make(chan Totals, 4)}
}

func (r *memCartRepo) WithTx(tx *gorm.DB) CartRepository { return r }

func (r *memCartRepo) snapshot() *models.Cart {
	cp := *r.cart
	cp.Items = append([]models.CartItem(nil), r.cart.Items...)
	return &cp
}

func (r *memCartRepo) LoadForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	return r.FindByID(ctx, id)
}

func (r *memCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart == nil || r.cart.ID != id {
		return nil, errCartNotFound(id)
	}
	return r.snapshot(), nil
}

func (r *memCartRepo) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart == nil || r.cart.OwnerID != ownerID || r.cart.Status != enums.CartStatusActive {
		return nil, errNoActiveCart(ownerID)
	}
	return r.snapshot(), nil
}

func (r *memCartRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart.ID = uuid.New()
	r.cart = cart
	return cart, nil
}

func (r *memCartRepo) Save(ctx context.Context, cart *models.Cart, items []models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].CartID = cart.ID
	}
	cart.Items = items
	r.cart = cart
	return nil
}

func (r *memCartRepo) HealTotals(ctx context.Context, cartID uuid.UUID, totals Totals) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart != nil && r.cart.ID == cartID && !r.cart.HasPersistedTotals() {
		r.cart.SetTotals(totals.Total, totals.TotalSessions)
	}
	r.healed <- totals
	return nil
}

func (r *memCartRepo) ListActiveWithItems(ctx context.Context, limit int) ([]models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cart == nil || r.cart.Status != enums.CartStatusActive {
		return nil, nil
	}
	return []models.Cart{*r.snapshot()}, nil
}

// memTxRunner serializes whole transactions, matching how FOR UPDATE makes
// concurrent mutations of the same cart queue behind each other.
type memTxRunner struct {
	mu *sync.Mutex
}

func (r memTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

func newTestService(t *testing.T, repo CartRepository, loader *fixtureLoader) Service {
	t.Helper()
	logg := testLogger()
	resolver, err := NewTotalsResolver(repo, loader, logg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	svc, err := NewService(repo, memTxRunner{mu: &sync.Mutex{}}, loader, resolver, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func activeCart(ownerID uuid.UUID) *models.Cart {
	c := &models.Cart{ID: uuid.New(), OwnerID: ownerID, Status: enums.CartStatusActive}
	c.SetTotals(decimal.Zero, 0)
	return c
}

func requireTotals(t *testing.T, cart *models.Cart, total string, sessions int) {
	t.Helper()
	if !cart.HasPersistedTotals() {
		t.Fatalf("expected persisted totals, got total=%+v sessions=%v", cart.Total, cart.TotalSessions)
	}
	if cart.Total.Decimal.String() != total {
		t.Fatalf("expected total %s, got %s", total, cart.Total.Decimal.String())
	}
	if *cart.TotalSessions != sessions {
		t.Fatalf("expected %d sessions, got %d", sessions, *cart.TotalSessions)
	}
}

func TestAddItemRecomputesTotals(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	silver := recurringEntry(uuid.New(), 8, 3, 155)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold, silver.ID: silver}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	cart, err := svc.AddItem(context.Background(), repo.cart.ID, gold.ID, 2)
	if err != nil {
		t.Fatalf("add gold: %v", err)
	}
	requireTotals(t, cart, "350", 16)

	cart, err = svc.AddItem(context.Background(), cart.ID, silver.ID, 1)
	if err != nil {
		t.Fatalf("add silver: %v", err)
	}
	requireTotals(t, cart, "505", 40)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	if _, err := svc.AddItem(context.Background(), repo.cart.ID, gold.ID, 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := svc.AddItem(context.Background(), repo.cart.ID, gold.ID, 2)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", cart.Items[0].Quantity)
	}
	requireTotals(t, cart, "525", 24)
}

func TestAddItemSnapshotShieldsPriceChanges(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	if _, err := svc.AddItem(context.Background(), repo.cart.ID, gold.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Catalog price changes after the line exists. The snapshot keeps the
	// cart total on the old price; session counts still follow the catalog.
	loader.mu.Lock()
	loader.entries[gold.ID].UnitPrice = decimal.NewFromInt(999)
	loader.mu.Unlock()

	cart, err := svc.UpdateQuantity(context.Background(), repo.cart.ID, repo.cart.Items[0].ID, 2)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	requireTotals(t, cart, "350", 16)
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	inactive := fixedEntry(uuid.New(), 4, 80)
	inactive.IsActive = false
	broken := fixedEntry(uuid.New(), 8, 175)
	broken.SessionsFixed = nil
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{
		gold.ID: gold, inactive.ID: inactive, broken.ID: broken,
	}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	cases := []struct {
		name    string
		entryID uuid.UUID
		qty     int
		code    pkgerrors.Code
	}{
		{"zero quantity", gold.ID, 0, pkgerrors.CodeValidation},
		{"negative quantity", gold.ID, -1, pkgerrors.CodeValidation},
		{"inactive entry", inactive.ID, 1, pkgerrors.CodeUnavailable},
		{"unknown entry", uuid.New(), 1, pkgerrors.CodeNotFound},
		{"inconsistent entry", broken.ID, 1, pkgerrors.CodeDataIntegrity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), repo.cart.ID, tc.entryID, tc.qty)
			if !pkgerrors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}

	// Nothing above should have written anything.
	if len(repo.cart.Items) != 0 {
		t.Fatalf("expected cart untouched, got %d items", len(repo.cart.Items))
	}
}

func TestUpdateQuantityZeroRemovesItem(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	if _, err := svc.AddItem(context.Background(), repo.cart.ID, gold.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.UpdateQuantity(context.Background(), repo.cart.ID, repo.cart.Items[0].ID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
	requireTotals(t, cart, "0", 0)
}

func TestRemoveItemUnknownID(t *testing.T) {
	t.Parallel()

	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	_, err := svc.RemoveItem(context.Background(), repo.cart.ID, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestMutationRejectedOnNonActiveCart(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold}}

	for _, status := range []enums.CartStatus{
		enums.CartStatusPending,
		enums.CartStatusCompleted,
		enums.CartStatusAbandoned,
	} {
		cart := activeCart(uuid.New())
		cart.Status = status
		repo := newMemCartRepo(cart)
		svc := newTestService(t, repo, loader)

		_, err := svc.AddItem(context.Background(), cart.ID, gold.ID, 1)
		if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("status %s: expected STATE_CONFLICT, got %v", status, err)
		}
	}
}

func TestGetOrCreateActiveCart(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{}}
	repo := &memCartRepo{healed: make(chan Totals, 1)}
	svc := newTestService(t, repo, loader)

	created, err := svc.GetOrCreateActiveCart(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.CartStatusActive {
		t.Fatalf("expected active cart, got %s", created.Status)
	}
	if !created.HasPersistedTotals() {
		t.Fatal("fresh cart should have cached totals populated")
	}
	if !created.Total.Decimal.IsZero() || *created.TotalSessions != 0 {
		t.Fatalf("fresh cart totals should be zero, got %s/%d", created.Total.Decimal, *created.TotalSessions)
	}

	again, err := svc.GetOrCreateActiveCart(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("expected same cart, got %s and %s", created.ID, again.ID)
	}
}

// Concurrent adds against the same cart must serialize through the row lock
// and converge: the final totals equal a fresh recomputation of the final
// item set regardless of interleaving.
func TestConcurrentAddsConverge(t *testing.T) {
	t.Parallel()

	gold := fixedEntry(uuid.New(), 8, 175)
	silver := recurringEntry(uuid.New(), 8, 3, 155)
	loader := &fixtureLoader{entries: map[uuid.UUID]*models.CatalogEntry{gold.ID: gold, silver.ID: silver}}
	repo := newMemCartRepo(activeCart(uuid.New()))
	svc := newTestService(t, repo, loader)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		entryID := gold.ID
		if i%2 == 1 {
			entryID = silver.ID
		}
		go func(entryID uuid.UUID) {
			defer wg.Done()
			if _, err := svc.AddItem(context.Background(), repo.cart.ID, entryID, 1); err != nil {
				t.Errorf("concurrent add: %v", err)
			}
		}(entryID)
	}
	wg.Wait()

	final, err := repo.FindByID(context.Background(), repo.cart.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want, err := ComputeTotals(context.Background(), loader, final.Items)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	requireTotals(t, final, want.Total.String(), want.TotalSessions)
	// 4 gold + 4 silver regardless of interleaving.
	requireTotals(t, final, "1320", 128)
}
