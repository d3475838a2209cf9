package storage

import (
	"context"
	"time"
)

// Lister returns every object key under a prefix. Implementations page
// through the backend themselves.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// URLIssuer returns a URL granting time-limited read access to exactly one key.
type URLIssuer interface {
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type BlobStore interface {
	Lister
	URLIssuer
}
