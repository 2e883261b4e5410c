package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound wird geliefert, wenn unter einem Schlüssel kein Objekt liegt.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore speichert Binärobjekte unter frei wählbaren Schlüsseln.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// BlobInfo beschreibt ein gelistetes Objekt.
type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}
