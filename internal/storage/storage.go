package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/vasiliy-maslov/shop-backend/internal/config"
)

const (
	ProviderDisk = "disk"
	ProviderGCS  = "gcs"
)

// Provider stores an uploaded blob and returns a retrievable reference. The
// order core only keeps the reference.
type Provider interface {
	Save(ctx context.Context, objectName string, r io.Reader) (string, error)
}

func New(ctx context.Context, cfg config.StorageConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderDisk, "":
		return NewDiskProvider(cfg.ReceiptDir)
	case ProviderGCS:
		return NewGCSProvider(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
