package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QR is a static payment instruction shown to the buyer after placing an
// order. Reference data, maintained by the back office.
type QR struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ImagePath string    `json:"image" db:"image_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Repository interface {
	List(ctx context.Context) ([]QR, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context) ([]QR, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, image_path, created_at FROM payment_qrs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payment QRs: %w", err)
	}
	defer rows.Close()

	qrs := make([]QR, 0)
	for rows.Next() {
		var qr QR
		if err := rows.Scan(&qr.ID, &qr.Name, &qr.ImagePath, &qr.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment QR: %w", err)
		}
		qrs = append(qrs, qr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating payment QRs: %w", err)
	}

	return qrs, nil
}
