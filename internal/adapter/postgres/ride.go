package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/postgres"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

const activeRideConstraint = "rides_one_active_per_driver"

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

func (r *RideRepo) Create(ctx context.Context, ride *models.RideRequest) error {
	ride.Version = 1
	doc, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("ride repo: Create: encode: %w", err)
	}

	query := `
        INSERT INTO rides (id, status, city, passenger_id, driver_id, target_driver_id, price, version, doc, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.Status, ride.City, ride.Passenger.ID, driverID(ride), ride.TargetDriverID,
		ride.Price, ride.Version, doc, ride.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeRideConstraint) {
			return types.ErrDriverBusy
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown passenger or driver", types.ErrInvalidInput)
		}
		return fmt.Errorf("ride repo: Create: %w", err)
	}
	return nil
}

// Get locks the row when ctx carries a transaction.
func (r *RideRepo) Get(ctx context.Context, id string) (*models.RideRequest, error) {
	query := `SELECT doc FROM rides WHERE id = $1` + lockClause(ctx)

	var doc []byte
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, fmt.Errorf("ride repo: Get: %w", err)
	}
	return decodeRide(doc)
}

// Update writes ride if the stored version still equals ride.Version and
// bumps it. A stale version is reported as trm.ErrConflict.
func (r *RideRepo) Update(ctx context.Context, ride *models.RideRequest) error {
	expected := ride.Version
	ride.Version++
	doc, err := json.Marshal(ride)
	if err != nil {
		ride.Version = expected
		return fmt.Errorf("ride repo: Update: encode: %w", err)
	}

	query := `
        UPDATE rides
        SET
            status = $2,
            driver_id = $3,
            version = $4,
            doc = $5,
            updated_at = now()
        WHERE id = $1 AND version = $6;`

	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, query, ride.ID, ride.Status, driverID(ride), ride.Version, doc, expected)
	if err != nil {
		ride.Version = expected
		if postgres.IsUniqueViolation(err, activeRideConstraint) {
			return types.ErrDriverBusy
		}
		return fmt.Errorf("ride repo: Update: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		ride.Version = expected
		return fmt.Errorf("ride repo: Update %s at version %d: %w", ride.ID, expected, trm.ErrConflict)
	}
	return nil
}

func (r *RideRepo) List(ctx context.Context, f models.RideFilter) ([]models.RideRequest, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, s.String())
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if f.City != "" {
		where = append(where, "city = "+arg(f.City))
	}
	if f.PassengerID != nil {
		where = append(where, "passenger_id = "+arg(*f.PassengerID))
	}
	if f.DriverID != nil {
		where = append(where, "driver_id = "+arg(*f.DriverID))
	}
	if f.CreatedBefore != nil {
		where = append(where, "created_at < "+arg(*f.CreatedBefore))
	}

	var sb strings.Builder
	sb.WriteString("SELECT doc FROM rides")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if f.NewestFirst {
		sb.WriteString(" ORDER BY id DESC")
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := TxorDB(ctx, r.db).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ride repo: List: %w", err)
	}
	defer rows.Close()

	var out []models.RideRequest
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("ride repo: List: scan: %w", err)
		}
		ride, err := decodeRide(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ride repo: List: %w", err)
	}
	return out, nil
}

func (r *RideRepo) Stats(ctx context.Context) (*models.RideStats, error) {
	query := `SELECT status, COUNT(*), COALESCE(SUM(price), 0)::float8 FROM rides GROUP BY status;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ride repo: Stats: %w", err)
	}
	defer rows.Close()

	stats := &models.RideStats{ByStatus: make(map[types.RideStatus]int)}
	for rows.Next() {
		var (
			status types.RideStatus
			count  int
			sum    float64
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("ride repo: Stats: scan: %w", err)
		}
		stats.ByStatus[status] = count
		if status == types.StatusCompleted {
			stats.CompletedRevenue = sum
		}
	}
	return stats, rows.Err()
}

func driverID(ride *models.RideRequest) any {
	if ride.Driver == nil {
		return nil
	}
	return ride.Driver.ID
}

func decodeRide(doc []byte) (*models.RideRequest, error) {
	var ride models.RideRequest
	if err := json.Unmarshal(doc, &ride); err != nil {
		return nil, fmt.Errorf("decode ride: %w", err)
	}
	return &ride, nil
}
