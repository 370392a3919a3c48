// Package snapshot persists per-user mirror snapshots of the cart and
// wishlist so a reload can render instantly before the next fetch
// resolves. Snapshots are a read-through shadow, never authoritative:
// any discrepancy is resolved in favor of the next successful fetch.
package snapshot

import "bookmart/pkg/domain"

// Store persists collection mirrors keyed by collection + user.
type Store interface {
	Save(key string, mirror domain.Mirror) error
	Load(key string) (domain.Mirror, bool, error)
	Delete(key string) error
}

// Key builds the namespaced snapshot key for one user's collection.
func Key(collection, userEmail string) string {
	return collection + ":" + userEmail
}
