package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

type RideEventRepo struct {
	db *pgxpool.Pool
}

func NewRideEventRepo(db *pgxpool.Pool) *RideEventRepo {
	return &RideEventRepo{db: db}
}

// Record inserts a new ride event into the database.
func (r *RideEventRepo) Record(ctx context.Context, ev models.RideEvent) error {
	query := `INSERT INTO ride_events (id, ride_id, event_type, actor_id, event_data, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6);`

	var data any
	if len(ev.Data) > 0 {
		data = ev.Data
	}
	_, err := TxorDB(ctx, r.db).Exec(ctx, query, ev.ID, ev.RideID, ev.Type.String(), ev.ActorID, data, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("ride event repo: Record: %w", err)
	}
	return nil
}

func (r *RideEventRepo) ListByRide(ctx context.Context, rideID string) ([]models.RideEvent, error) {
	query := `SELECT id, ride_id, event_type, actor_id, event_data, created_at
			  FROM ride_events WHERE ride_id = $1 ORDER BY id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, rideID)
	if err != nil {
		return nil, fmt.Errorf("ride event repo: ListByRide: %w", err)
	}
	defer rows.Close()

	var out []models.RideEvent
	for rows.Next() {
		var ev models.RideEvent
		if err := rows.Scan(&ev.ID, &ev.RideID, &ev.Type, &ev.ActorID, &ev.Data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("ride event repo: ListByRide: scan: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
