// File: internal/infra/storage/local_store.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/ports/adapter"
)

// LocalStore writes documents under a directory on the service host and
// returns URLs rooted at a configured base. Good enough for a single-node
// deployment; swap in an object store behind the same port when needed.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ adapter.FileStore = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Store(_ context.Context, data []byte, filename string) (string, error) {
	// filenames are service-generated, but keep path traversal out anyway
	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid filename %q", domain.ErrInvalidArgument, filename)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return s.baseURL + "/" + name, nil
}
