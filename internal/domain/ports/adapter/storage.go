package adapter

import "context"

// FileStore persists rendered documents and returns an addressable URL.
type FileStore interface {
	Store(ctx context.Context, data []byte, filename string) (url string, err error)
}
