// Package storage holds the blob store for rendered court documents.
package storage

import "context"

// Object is one stored blob with its metadata.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore is interface-driven to keep document rendering testable and to
// allow swapping in-memory, file-based, or external persistence without
// rewiring business code.
type BlobStore interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
}
