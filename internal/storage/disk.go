package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskProvider writes blobs under a local directory. The returned reference is
// the path relative to that directory.
type DiskProvider struct {
	root string
}

func NewDiskProvider(root string) (*DiskProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory %s: %w", root, err)
	}
	return &DiskProvider{root: root}, nil
}

func (p *DiskProvider) Save(_ context.Context, objectName string, r io.Reader) (string, error) {
	objectName = filepath.Base(objectName) // no path traversal via file names
	dst := filepath.Join(p.root, objectName)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("storage: failed to create file %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("storage: failed to write file %s: %w", dst, err)
	}

	return objectName, nil
}
