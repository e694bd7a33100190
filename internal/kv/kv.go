package kv

import (
	"context"
	"errors"
)

// Store is the persistence port behind drafts and order history. Values are
// opaque JSON blobs keyed by "storefront:<session>:<container>".
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")

// Key scopes a container name to a browser profile.
func Key(sessionID, container string) string {
	return "storefront:" + sessionID + ":" + container
}
