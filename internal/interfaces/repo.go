package interfaces

import "context"

// A LookupStore resolves a single field of the document stored under key
type LookupStore interface {
	Lookup(ctx context.Context, collection, key, field string) (string, bool, error)
}
