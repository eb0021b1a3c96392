package memstore

import (
	"context"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

type EventRepo struct {
	s *Store
}

func (r *EventRepo) Record(ctx context.Context, ev models.RideEvent) error {
	return r.s.write(ctx, func(tx *txn) error {
		tx.events = append(tx.events, ev)
		return nil
	})
}

func (r *EventRepo) ListByRide(ctx context.Context, rideID string) ([]models.RideEvent, error) {
	var out []models.RideEvent
	r.s.view(ctx, func(tx *txn) {
		for _, ev := range r.s.events {
			if ev.RideID == rideID {
				out = append(out, ev)
			}
		}
		if tx != nil {
			for _, ev := range tx.events {
				if ev.RideID == rideID {
					out = append(out, ev)
				}
			}
		}
	})
	return out, nil
}
