package insurance

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Filesystem stores documents under a local directory, laid out the same way
// as ObjectPath. The /files/ static route serves the directory.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

// Root returns the directory documents are written under.
func (s *Filesystem) Root() string {
	return s.root
}

func (s *Filesystem) Upload(_ context.Context, driverID, fileName string, content io.Reader) (string, error) {
	objectPath := ObjectPath(driverID, fileName)
	fullPath := filepath.Join(s.root, filepath.FromSlash(objectPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	return PublicURL(driverID, fileName), nil
}

var _ Store = (*Filesystem)(nil)
