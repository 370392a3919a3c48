// Package cart keeps local mirrors of the remote cart and wishlist and
// reconciles them against the API, which stays the single source of
// truth. Mirrors and aggregates are persisted to the snapshot store
// after every successful mutation so a reload renders instantly.
//
// Two racing mutations on the same item are not serialized: whichever
// response lands last wins the mirror, matching the web client this
// layer fronts.
package cart

import (
	"errors"
	"fmt"
	"log/slog"

	"bookmart/internal/apiclient"
	"bookmart/internal/snapshot"
	"bookmart/pkg/domain"
)

// Collection names double as snapshot key namespaces.
const (
	CollectionCart     = "cart"
	CollectionWishlist = "wishlist"
)

// ErrQuantityTooLow is returned when a quantity update would drop below 1.
// The remote call is never made; removal is an explicit operation.
var ErrQuantityTooLow = errors.New("quantity must be at least 1")

// ErrItemNotMirrored is returned when a confirmed mutation references a
// line item the local mirror does not hold; the caller should refetch.
var ErrItemNotMirrored = errors.New("item not present in local mirror")

// Reconciler owns the cart and wishlist mirrors for all sessions.
type Reconciler struct {
	api       *apiclient.Client
	snapshots snapshot.Store
}

// NewReconciler wires the remote client and the snapshot store.
func NewReconciler(api *apiclient.Client, snapshots snapshot.Store) *Reconciler {
	return &Reconciler{api: api, snapshots: snapshots}
}

// Cached returns the persisted snapshot for instant first paint. Absence
// or a read failure both yield an empty mirror; the caller follows up
// with a fetch either way.
func (r *Reconciler) Cached(collection string, sess domain.Session) (domain.Mirror, bool) {
	mirror, ok, err := r.snapshots.Load(snapshot.Key(collection, sess.Email))
	if err != nil {
		slog.Warn("snapshot read failed", "collection", collection, "err", err)
		return domain.Mirror{}, false
	}
	return mirror, ok
}

// FetchCart replaces the cart mirror with the authoritative page.
func (r *Reconciler) FetchCart(sess domain.Session, page, limit int) (domain.Mirror, *domain.Pagination, error) {
	return r.fetch(CollectionCart, sess, page, limit)
}

// FetchWishlist replaces the wishlist mirror with the authoritative page.
func (r *Reconciler) FetchWishlist(sess domain.Session, page, limit int) (domain.Mirror, *domain.Pagination, error) {
	return r.fetch(CollectionWishlist, sess, page, limit)
}

func (r *Reconciler) fetch(collection string, sess domain.Session, page, limit int) (domain.Mirror, *domain.Pagination, error) {
	var (
		remote apiclient.CollectionPage
		err    error
	)
	switch collection {
	case CollectionWishlist:
		remote, err = r.api.GetWishlist(sess.Token, page, limit)
	default:
		remote, err = r.api.GetCart(sess.Token, page, limit)
	}
	if err != nil {
		// The API reports an empty collection as an error. That is a
		// benign state, not a failure; normalize to an empty page.
		if apiclient.IsEmptyCollection(err) {
			mirror := domain.Mirror{Items: []domain.LineItem{}}
			mirror.Recompute()
			r.persist(collection, sess, mirror)
			return mirror, nil, nil
		}
		return domain.Mirror{}, nil, err
	}

	mirror := domain.Mirror{Items: remote.Items}
	if mirror.Items == nil {
		mirror.Items = []domain.LineItem{}
	}
	mirror.Recompute()
	r.persist(collection, sess, mirror)
	return mirror, remote.Pagination, nil
}

// AddToCart issues the remote add. No placeholder is inserted locally:
// price, title, and image are unknown until the server responds, so the
// change becomes visible on the next fetch.
func (r *Reconciler) AddToCart(sess domain.Session, bookID string) error {
	return r.api.AddToCart(sess.Token, bookID)
}

// AddToWishlist issues the remote add; visible on the next fetch.
func (r *Reconciler) AddToWishlist(sess domain.Session, bookID string) error {
	return r.api.AddToWishlist(sess.Token, bookID)
}

// RemoveFromCart removes remotely, then drops the item from the mirror
// and recomputes aggregates. The mirror is untouched on failure.
func (r *Reconciler) RemoveFromCart(sess domain.Session, bookID string) (domain.Mirror, error) {
	if err := r.api.RemoveFromCart(sess.Token, bookID); err != nil {
		return domain.Mirror{}, err
	}
	return r.removeLocal(CollectionCart, sess, bookID)
}

// RemoveFromWishlist removes remotely, then drops the local entry.
func (r *Reconciler) RemoveFromWishlist(sess domain.Session, bookID string) (domain.Mirror, error) {
	if err := r.api.RemoveFromWishlist(sess.Token, bookID); err != nil {
		return domain.Mirror{}, err
	}
	return r.removeLocal(CollectionWishlist, sess, bookID)
}

func (r *Reconciler) removeLocal(collection string, sess domain.Session, bookID string) (domain.Mirror, error) {
	mirror, _ := r.Cached(collection, sess)
	kept := mirror.Items[:0]
	found := false
	for _, item := range mirror.Items {
		if item.BookID == bookID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	mirror.Items = kept
	mirror.Recompute()
	r.persist(collection, sess, mirror)
	if !found {
		return mirror, ErrItemNotMirrored
	}
	return mirror, nil
}

// UpdateQuantity sets a cart item's quantity. Values below 1 are rejected
// locally before any remote call; the prior state stays intact.
func (r *Reconciler) UpdateQuantity(sess domain.Session, bookID string, quantity int) (domain.Mirror, error) {
	if quantity < 1 {
		return domain.Mirror{}, fmt.Errorf("update %s: %w", bookID, ErrQuantityTooLow)
	}
	if err := r.api.UpdateCartQuantity(sess.Token, bookID, quantity); err != nil {
		return domain.Mirror{}, err
	}
	mirror, _ := r.Cached(CollectionCart, sess)
	found := false
	for i := range mirror.Items {
		if mirror.Items[i].BookID == bookID {
			mirror.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	mirror.Recompute()
	r.persist(CollectionCart, sess, mirror)
	if !found {
		return mirror, ErrItemNotMirrored
	}
	return mirror, nil
}

// ClearCart empties the remote cart, the mirror, and its snapshot.
func (r *Reconciler) ClearCart(sess domain.Session) error {
	if err := r.api.ClearCart(sess.Token); err != nil {
		return err
	}
	if err := r.snapshots.Delete(snapshot.Key(CollectionCart, sess.Email)); err != nil {
		slog.Warn("snapshot delete failed", "collection", CollectionCart, "err", err)
	}
	return nil
}

// InvalidateCart drops the local cart mirror without touching the
// remote cart. Used after checkout, when the remote side has already
// consumed the cart into an order.
func (r *Reconciler) InvalidateCart(sess domain.Session) {
	if err := r.snapshots.Delete(snapshot.Key(CollectionCart, sess.Email)); err != nil {
		slog.Warn("snapshot delete failed", "collection", CollectionCart, "err", err)
	}
}

// persist writes the mirror through to the snapshot store. An empty
// mirror deletes the snapshot instead of storing a husk. Snapshot
// failures are logged, never surfaced: the cache is best-effort.
func (r *Reconciler) persist(collection string, sess domain.Session, mirror domain.Mirror) {
	key := snapshot.Key(collection, sess.Email)
	var err error
	if mirror.Empty() {
		err = r.snapshots.Delete(key)
	} else {
		err = r.snapshots.Save(key, mirror)
	}
	if err != nil {
		slog.Warn("snapshot write failed", "collection", collection, "err", err)
	}
}
