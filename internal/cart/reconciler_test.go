package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"bookmart/internal/apiclient"
	"bookmart/internal/snapshot"
	"bookmart/pkg/domain"
)

func customer() domain.Session {
	return domain.Session{Token: "tok", Role: domain.RoleCustomer, Email: "c@example.com"}
}

// fakeAPI serves the cart/wishlist endpoints over an in-memory item list.
type fakeAPI struct {
	items     []domain.LineItem
	wishlist  []domain.LineItem
	failNext  atomic.Bool
	mutations atomic.Int32
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeEnvelope := func(w http.ResponseWriter, items []domain.LineItem, emptyMsg string) {
		if len(items) == 0 {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": emptyMsg,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "items": items})
	}
	fail := func(w http.ResponseWriter) bool {
		if f.failNext.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "server exploded"})
			return true
		}
		return false
	}
	ok := func(w http.ResponseWriter) {
		f.mutations.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}

	mux.HandleFunc("/api/cart/getcart", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, f.items, "Cart is empty")
	})
	mux.HandleFunc("/api/wishlist/getwishlist", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, f.wishlist, "Wishlist is empty")
	})
	mux.HandleFunc("/api/cart/addtocart", func(w http.ResponseWriter, _ *http.Request) {
		if fail(w) {
			return
		}
		ok(w)
	})
	mux.HandleFunc("/api/cart/removefromcart/", func(w http.ResponseWriter, _ *http.Request) {
		if fail(w) {
			return
		}
		ok(w)
	})
	mux.HandleFunc("/api/cart/updatequantity", func(w http.ResponseWriter, _ *http.Request) {
		if fail(w) {
			return
		}
		ok(w)
	})
	mux.HandleFunc("/api/cart/clearcart", func(w http.ResponseWriter, _ *http.Request) {
		if fail(w) {
			return
		}
		f.items = nil
		ok(w)
	})
	mux.HandleFunc("/api/wishlist/removefromwishlist/", func(w http.ResponseWriter, _ *http.Request) {
		if fail(w) {
			return
		}
		ok(w)
	})
	return mux
}

func newTestReconciler(t *testing.T, api *fakeAPI) (*Reconciler, snapshot.Store) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	store := snapshot.NewMemoryStore()
	return NewReconciler(apiclient.New(srv.URL), store), store
}

func TestFetchCartReplacesMirrorAndPersists(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{
		{BookID: "b1", Title: "Go in Action", UnitPrice: 100, Quantity: 2},
		{BookID: "b2", Title: "Clean Code", UnitPrice: 50, Quantity: 1},
	}}
	rec, store := newTestReconciler(t, api)

	mirror, _, err := rec.FetchCart(customer(), 1, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if mirror.TotalQuantity != 3 || mirror.TotalPrice != 250 {
		t.Fatalf("unexpected aggregates %+v", mirror)
	}

	saved, ok, err := store.Load(snapshot.Key(CollectionCart, "c@example.com"))
	if err != nil || !ok {
		t.Fatalf("expected persisted snapshot, ok=%v err=%v", ok, err)
	}
	if saved.TotalPrice != 250 {
		t.Fatalf("snapshot aggregates stale: %+v", saved)
	}
}

func TestFetchEmptySentinelIsNotAnError(t *testing.T) {
	api := &fakeAPI{} // no wishlist items: server answers "Wishlist is empty"
	rec, _ := newTestReconciler(t, api)

	mirror, _, err := rec.FetchWishlist(customer(), 1, 10)
	if err != nil {
		t.Fatalf("empty sentinel must normalize to success, got %v", err)
	}
	if !mirror.Empty() || mirror.TotalQuantity != 0 || mirror.TotalPrice != 0 {
		t.Fatalf("expected empty mirror, got %+v", mirror)
	}
}

func TestFetchRealFailureSurfaces(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 10, Quantity: 1}}}
	rec, store := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	api.failNext.Store(true)
	// getcart doesn't consult failNext in the fake, so exercise a mutation.
	if _, err := rec.UpdateQuantity(customer(), "b1", 5); err == nil {
		t.Fatal("expected remote failure to surface")
	}

	// Mirror untouched on failure.
	saved, _, _ := store.Load(snapshot.Key(CollectionCart, "c@example.com"))
	if saved.Items[0].Quantity != 1 {
		t.Fatalf("mirror mutated on failed call: %+v", saved)
	}
}

func TestUpdateQuantityRecomputesAggregates(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 100, Quantity: 2}}}
	rec, _ := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	mirror, err := rec.UpdateQuantity(customer(), "b1", 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if mirror.Items[0].Quantity != 3 {
		t.Fatalf("quantity not applied: %+v", mirror.Items[0])
	}
	if mirror.TotalQuantity != 3 || mirror.TotalPrice != 300 {
		t.Fatalf("aggregates not recomputed: %+v", mirror)
	}
}

func TestUpdateQuantityBelowOneIsRejectedLocally(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 100, Quantity: 2}}}
	rec, store := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	before := api.mutations.Load()

	_, err := rec.UpdateQuantity(customer(), "b1", 0)
	if !errors.Is(err, ErrQuantityTooLow) {
		t.Fatalf("expected ErrQuantityTooLow, got %v", err)
	}
	if api.mutations.Load() != before {
		t.Fatal("a below-minimum update must never reach the remote API")
	}

	saved, _, _ := store.Load(snapshot.Key(CollectionCart, "c@example.com"))
	if saved.Items[0].Quantity != 2 {
		t.Fatalf("prior quantity lost: %+v", saved.Items[0])
	}
}

func TestRemoveLastItemClearsSnapshot(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 100, Quantity: 2}}}
	rec, store := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	mirror, err := rec.RemoveFromCart(customer(), "b1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !mirror.Empty() || mirror.TotalQuantity != 0 || mirror.TotalPrice != 0 {
		t.Fatalf("expected empty mirror, got %+v", mirror)
	}
	if _, ok, _ := store.Load(snapshot.Key(CollectionCart, "c@example.com")); ok {
		t.Fatal("expected snapshot removed with last item")
	}
}

func TestRemoveUnknownItemReportsStaleMirror(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 100, Quantity: 1}}}
	rec, _ := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	if _, err := rec.RemoveFromCart(customer(), "ghost"); !errors.Is(err, ErrItemNotMirrored) {
		t.Fatalf("expected ErrItemNotMirrored, got %v", err)
	}
}

func TestClearCartDeletesSnapshot(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 10, Quantity: 1}}}
	rec, store := newTestReconciler(t, api)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	if err := rec.ClearCart(customer()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(snapshot.Key(CollectionCart, "c@example.com")); ok {
		t.Fatal("expected snapshot gone after clear")
	}
}

func TestAggregateInvariantAfterMutationSequence(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{
		{BookID: "b1", UnitPrice: 100, Quantity: 2},
		{BookID: "b2", UnitPrice: 25, Quantity: 4},
		{BookID: "b3", UnitPrice: 10, Quantity: 1},
	}}
	rec, _ := newTestReconciler(t, api)
	sess := customer()

	if _, _, err := rec.FetchCart(sess, 1, 10); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	if _, err := rec.UpdateQuantity(sess, "b2", 2); err != nil {
		t.Fatalf("update b2: %v", err)
	}
	if _, err := rec.RemoveFromCart(sess, "b3"); err != nil {
		t.Fatalf("remove b3: %v", err)
	}
	mirror, err := rec.UpdateQuantity(sess, "b1", 5)
	if err != nil {
		t.Fatalf("update b1: %v", err)
	}

	wantQty, wantPrice := 0, 0.0
	for _, item := range mirror.Items {
		wantQty += item.Quantity
		wantPrice += item.UnitPrice * float64(item.Quantity)
	}
	if mirror.TotalQuantity != wantQty || mirror.TotalPrice != wantPrice {
		t.Fatalf("aggregates diverged from contents: %+v (want qty=%d price=%v)", mirror, wantQty, wantPrice)
	}
	if mirror.TotalQuantity != 7 || mirror.TotalPrice != 550 {
		t.Fatalf("unexpected aggregates: %+v", mirror)
	}
}

func TestCachedReturnsSnapshotWithRedisStore(t *testing.T) {
	api := &fakeAPI{items: []domain.LineItem{{BookID: "b1", UnitPrice: 100, Quantity: 2}}}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	redis := miniredis.RunT(t)
	store := snapshot.NewRedisStore(redis.Addr(), "", "test:snapshot", time.Hour)
	rec := NewReconciler(apiclient.New(srv.URL), store)

	if _, _, err := rec.FetchCart(customer(), 1, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	cached, ok := rec.Cached(CollectionCart, customer())
	if !ok {
		t.Fatal("expected cached snapshot after fetch")
	}
	if cached.TotalPrice != 200 {
		t.Fatalf("unexpected cached aggregates %+v", cached)
	}
}
