package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeviceRegistry resolves a trap device to its owning farm. Registrations are
// owned by device-management; this side only reads. A missing mapping is a
// legitimate outcome (devices may publish before they are provisioned), so it
// is reported via ok=false, not an error.
type DeviceRegistry interface {
	Lookup(ctx context.Context, deviceID string) (farmID string, ok bool, err error)
}

// PostgresRegistry looks devices up in the device-management schema.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) Lookup(ctx context.Context, deviceID string) (string, bool, error) {
	var farmID string
	err := r.pool.QueryRow(ctx,
		`SELECT farm_id FROM devices WHERE device_id = $1`, deviceID,
	).Scan(&farmID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("registry lookup %s: %w", deviceID, err)
	}
	return farmID, true, nil
}
