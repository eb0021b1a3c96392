package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

type RideRepo struct {
	s *Store
}

func (r *RideRepo) Create(ctx context.Context, ride *models.RideRequest) error {
	return r.s.write(ctx, func(tx *txn) error {
		if _, ok := r.s.ride(tx, ride.ID); ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRide, ride.ID)
		}
		ride.Version = 1
		tx.stageRide(ride.Clone())
		return nil
	})
}

func (r *RideRepo) Get(ctx context.Context, id string) (*models.RideRequest, error) {
	var (
		out models.RideRequest
		ok  bool
	)
	r.s.view(ctx, func(tx *txn) {
		out, ok = r.s.ride(tx, id)
	})
	if !ok {
		return nil, types.ErrRideNotFound
	}
	c := out.Clone()
	return &c, nil
}

// Update stores ride if its Version still matches the stored one, then bumps it.
func (r *RideRepo) Update(ctx context.Context, ride *models.RideRequest) error {
	return r.s.write(ctx, func(tx *txn) error {
		cur, ok := r.s.ride(tx, ride.ID)
		if !ok {
			return types.ErrRideNotFound
		}
		if cur.Version != ride.Version {
			return fmt.Errorf("ride %s version %d, have %d: %w", ride.ID, cur.Version, ride.Version, trm.ErrConflict)
		}
		ride.Version++
		tx.stageRide(ride.Clone())
		return nil
	})
}

func (r *RideRepo) List(ctx context.Context, f models.RideFilter) ([]models.RideRequest, error) {
	var out []models.RideRequest
	r.s.view(ctx, func(tx *txn) {
		seen := make(map[string]struct{})
		if tx != nil {
			for _, id := range tx.rideOrder {
				seen[id] = struct{}{}
				if ride := tx.rides[id]; f.Match(&ride) {
					out = append(out, ride.Clone())
				}
			}
		}
		for id, ride := range r.s.rides {
			if _, ok := seen[id]; ok {
				continue
			}
			if f.Match(&ride) {
				out = append(out, ride.Clone())
			}
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if f.NewestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *RideRepo) Stats(ctx context.Context) (*models.RideStats, error) {
	stats := &models.RideStats{ByStatus: make(map[types.RideStatus]int)}
	r.s.view(ctx, func(tx *txn) {
		for _, ride := range r.s.rides {
			stats.ByStatus[ride.Status]++
			if ride.Status == types.StatusCompleted {
				stats.CompletedRevenue += ride.Price
			}
		}
	})
	return stats, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
