package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T, name string) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.VisitorState{}, &models.CartSnapshot{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return store.New(db)
}

type fakeCartAPI struct {
	mu sync.Mutex

	items []backend.CartItem

	findCalls  int
	countCalls int
	totalCalls int
	syncCalls  int
	clearCalls int

	lastFindIdent    backend.CartIdentity
	lastClearGuestID string

	findErr   error
	addErr    error
	updateErr error
	deleteErr error
	syncErr   error
}

func (f *fakeCartAPI) FindCartItems(ctx context.Context, ident backend.CartIdentity) ([]backend.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lastFindIdent = ident
	if f.findErr != nil {
		return nil, f.findErr
	}
	items := make([]backend.CartItem, len(f.items))
	copy(items, f.items)
	return items, nil
}

func (f *fakeCartAPI) CartCount(ctx context.Context, ident backend.CartIdentity) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.findErr != nil {
		return 0, f.findErr
	}
	count := 0
	for _, item := range f.items {
		count += item.Quantity
	}
	return count, nil
}

func (f *fakeCartAPI) CartTotal(ctx context.Context, ident backend.CartIdentity) (models.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalCalls++
	if f.findErr != nil {
		return models.Money{}, f.findErr
	}
	total := decimal.Zero
	for _, item := range f.items {
		total = total.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return models.NewMoneyFromDecimal(total), nil
}

func (f *fakeCartAPI) AddCartItem(ctx context.Context, ident backend.CartIdentity, productID, sizeID uint, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.items = append(f.items, backend.CartItem{
		ID:        uint(len(f.items) + 1),
		ProductID: productID,
		SizeID:    sizeID,
		Quantity:  quantity,
		UnitPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
	})
	return nil
}

func (f *fakeCartAPI) UpdateCartItem(ctx context.Context, itemID uint, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Quantity = quantity
		}
	}
	return nil
}

func (f *fakeCartAPI) DeleteCartItem(ctx context.Context, itemID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.items[:0]
	for _, item := range f.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeCartAPI) SyncCart(ctx context.Context, userID uint, guestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	return f.syncErr
}

func (f *fakeCartAPI) ClearGuestCart(ctx context.Context, guestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.lastClearGuestID = guestID
	return nil
}

func cakeItem(id uint, quantity int, price int64) backend.CartItem {
	return backend.CartItem{
		ID:          id,
		ProductID:   id,
		SizeID:      1,
		Quantity:    quantity,
		ProductName: fmt.Sprintf("cake-%d", id),
		SizeName:    "6寸",
		UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
	}
}

func TestFetchThrottleServesCachedSnapshot(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30)}}
	sync := NewSynchronizer(api, newTestStore(t, "throttle"), time.Second)

	current := time.Unix(1700000000, 0)
	sync.now = func() time.Time { return current }

	ident := backend.CartIdentity{GuestID: "g-1"}
	first, err := sync.Fetch(context.Background(), "sess-1", ident)
	if err != nil {
		t.Fatalf("first fetch error: %v", err)
	}
	if first.Count != 2 {
		t.Fatalf("expected count 2, got %d", first.Count)
	}

	current = current.Add(300 * time.Millisecond)
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("second fetch error: %v", err)
	}
	if api.findCalls != 1 {
		t.Fatalf("expected 1 backend round trip inside throttle window, got %d", api.findCalls)
	}

	current = current.Add(time.Second)
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("third fetch error: %v", err)
	}
	if api.findCalls != 2 {
		t.Fatalf("expected refresh after throttle window, got %d calls", api.findCalls)
	}
}

func TestFetchEmptyCartZeroesAggregates(t *testing.T) {
	api := &fakeCartAPI{}
	sync := NewSynchronizer(api, newTestStore(t, "empty"), time.Second)

	snap, err := sync.Fetch(context.Background(), "sess-1", backend.CartIdentity{GuestID: "g-1"})
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if len(snap.Items) != 0 || snap.Count != 0 {
		t.Fatalf("expected empty normalized snapshot, got %+v", snap)
	}
	if !snap.Total.Decimal.IsZero() {
		t.Fatalf("expected zero total, got %s", snap.Total.String())
	}
}

func TestFetchWithoutIdentityReturnsEmptyCart(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 1, 10)}}
	sync := NewSynchronizer(api, newTestStore(t, "noident"), time.Second)

	snap, err := sync.Fetch(context.Background(), "sess-1", backend.CartIdentity{})
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if len(snap.Items) != 0 || snap.Count != 0 {
		t.Fatalf("expected empty cart without identity, got %+v", snap)
	}
	if api.findCalls != 0 {
		t.Fatalf("expected no backend call without identity, got %d", api.findCalls)
	}
}

func TestFetchFailureFallsBackToCachedSnapshot(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30)}}
	sync := NewSynchronizer(api, newTestStore(t, "fallback"), time.Second)

	current := time.Unix(1700000000, 0)
	sync.now = func() time.Time { return current }

	ident := backend.CartIdentity{UserID: 7}
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}

	api.findErr = fmt.Errorf("dial backend: %w", backend.ErrUnavailable)
	current = current.Add(2 * time.Second)
	snap, err := sync.Fetch(context.Background(), "sess-1", ident)
	if err != nil {
		t.Fatalf("expected cached fallback, got error: %v", err)
	}
	if snap.Count != 2 {
		t.Fatalf("expected cached snapshot with count 2, got %d", snap.Count)
	}
}

func TestAddItemValidation(t *testing.T) {
	api := &fakeCartAPI{}
	sync := NewSynchronizer(api, newTestStore(t, "addvalid"), time.Second)

	if _, err := sync.AddItem(context.Background(), "sess-1", backend.CartIdentity{GuestID: "g-1"}, 1, 1, 0); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected quantity invalid, got %v", err)
	}
	if _, err := sync.AddItem(context.Background(), "sess-1", backend.CartIdentity{}, 1, 1, 1); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("expected identity required, got %v", err)
	}
}

func TestAddItemRefetchesAuthoritativeState(t *testing.T) {
	api := &fakeCartAPI{}
	sync := NewSynchronizer(api, newTestStore(t, "add"), time.Second)

	snap, err := sync.AddItem(context.Background(), "sess-1", backend.CartIdentity{GuestID: "g-1"}, 5, 2, 3)
	if err != nil {
		t.Fatalf("add item error: %v", err)
	}
	if snap.Count != 3 || len(snap.Items) != 1 {
		t.Fatalf("expected authoritative snapshot after add, got %+v", snap)
	}
}

func TestUpdateItemRollbackRestoresExactSnapshot(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30), cakeItem(2, 1, 45)}}
	st := newTestStore(t, "rollback")
	sync := NewSynchronizer(api, st, time.Second)

	ident := backend.CartIdentity{UserID: 7}
	before, err := sync.Fetch(context.Background(), "sess-1", ident)
	if err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}

	api.updateErr = &backend.APIError{StatusCode: 409, Message: "Insufficient stock. Available: 2"}
	_, err = sync.UpdateItemQuantity(context.Background(), "sess-1", ident, 1, 9)
	if err == nil {
		t.Fatalf("expected update to fail")
	}

	after, err := st.LoadSnapshot("sess-1")
	if err != nil {
		t.Fatalf("load snapshot error: %v", err)
	}
	if len(after.Items) != len(before.Items) {
		t.Fatalf("expected %d items after rollback, got %d", len(before.Items), len(after.Items))
	}
	for i := range before.Items {
		if after.Items[i].ID != before.Items[i].ID || after.Items[i].Quantity != before.Items[i].Quantity {
			t.Fatalf("rollback mismatch at %d: before %+v after %+v", i, before.Items[i], after.Items[i])
		}
	}
	if after.Count != before.Count || !after.Total.Decimal.Equal(before.Total.Decimal) {
		t.Fatalf("rollback aggregates mismatch: before %d/%s after %d/%s",
			before.Count, before.Total.String(), after.Count, after.Total.String())
	}
	if after.Version <= before.Version {
		t.Fatalf("expected rollback to advance version, before %d after %d", before.Version, after.Version)
	}
}

func TestUpdateItemRewritesInsufficientStock(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30)}}
	sync := NewSynchronizer(api, newTestStore(t, "stock"), time.Second)

	ident := backend.CartIdentity{UserID: 7}
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}

	api.updateErr = &backend.APIError{StatusCode: 409, Message: "Insufficient stock. Available: 2"}
	_, err := sync.UpdateItemQuantity(context.Background(), "sess-1", ident, 1, 9)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if stockErr.Available != 2 {
		t.Fatalf("expected available 2, got %d", stockErr.Available)
	}
	if stockErr.ProductName != "cake-1" {
		t.Fatalf("expected product name from snapshot, got %q", stockErr.ProductName)
	}
}

func TestUpdateItemMissingFromSnapshot(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30)}}
	sync := NewSynchronizer(api, newTestStore(t, "missing"), time.Second)

	ident := backend.CartIdentity{UserID: 7}
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}
	if _, err := sync.UpdateItemQuantity(context.Background(), "sess-1", ident, 99, 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestRemoveItemConvergesToAuthoritativeState(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30), cakeItem(2, 1, 45)}}
	sync := NewSynchronizer(api, newTestStore(t, "remove"), time.Second)

	ident := backend.CartIdentity{UserID: 7}
	if _, err := sync.Fetch(context.Background(), "sess-1", ident); err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}

	snap, err := sync.RemoveItem(context.Background(), "sess-1", ident, 1)
	if err != nil {
		t.Fatalf("remove item error: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].ID != 2 {
		t.Fatalf("expected item 2 to remain, got %+v", snap.Items)
	}
	if snap.Count != 1 {
		t.Fatalf("expected count 1, got %d", snap.Count)
	}
}

func TestMergeGuestCartSyncsOnceAndRefetchesAsUser(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 3, 20)}}
	sync := NewSynchronizer(api, newTestStore(t, "merge"), time.Second)

	if err := sync.MergeGuestCart(context.Background(), "sess-1", 7, "g-1"); err != nil {
		t.Fatalf("merge error: %v", err)
	}
	if api.syncCalls != 1 {
		t.Fatalf("expected exactly one sync call, got %d", api.syncCalls)
	}
	if api.lastClearGuestID != "g-1" {
		t.Fatalf("expected guest cleanup for g-1, got %q", api.lastClearGuestID)
	}
	if api.lastFindIdent.UserID != 7 || api.lastFindIdent.GuestID != "" {
		t.Fatalf("expected refetch as user 7, got %+v", api.lastFindIdent)
	}
}

func TestClearWritesEmptySnapshotWithoutNetwork(t *testing.T) {
	api := &fakeCartAPI{items: []backend.CartItem{cakeItem(1, 2, 30)}}
	st := newTestStore(t, "clear")
	sync := NewSynchronizer(api, st, time.Second)

	if _, err := sync.Fetch(context.Background(), "sess-1", backend.CartIdentity{UserID: 7}); err != nil {
		t.Fatalf("warmup fetch error: %v", err)
	}
	callsBefore := api.findCalls

	if err := sync.Clear(context.Background(), "sess-1"); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	if api.findCalls != callsBefore {
		t.Fatalf("expected clear to stay local, backend calls %d -> %d", callsBefore, api.findCalls)
	}
	snap, err := st.LoadSnapshot("sess-1")
	if err != nil {
		t.Fatalf("load snapshot error: %v", err)
	}
	if len(snap.Items) != 0 || snap.Count != 0 || !snap.Total.Decimal.IsZero() {
		t.Fatalf("expected empty snapshot after clear, got %+v", snap)
	}
}
