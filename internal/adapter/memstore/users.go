package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

type UserRepo struct {
	s *Store
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.s.write(ctx, func(tx *txn) error {
		if _, ok := r.s.user(tx, u.ID); ok {
			return types.ErrUserExists
		}
		now := r.s.now()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		u.Version = 1
		tx.stageUser(u.Clone())
		return nil
	})
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var (
		out models.User
		ok  bool
	)
	r.s.view(ctx, func(tx *txn) {
		out, ok = r.s.user(tx, id)
	})
	if !ok {
		return nil, types.ErrUserNotFound
	}
	c := out.Clone()
	return &c, nil
}

// Update stores u if its Version still matches the stored one, then bumps it.
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	return r.s.write(ctx, func(tx *txn) error {
		cur, ok := r.s.user(tx, u.ID)
		if !ok {
			return types.ErrUserNotFound
		}
		if cur.Version != u.Version {
			return fmt.Errorf("user %s version %d, have %d: %w", u.ID, cur.Version, u.Version, trm.ErrConflict)
		}
		u.Version++
		u.UpdatedAt = r.s.now()
		tx.stageUser(u.Clone())
		return nil
	})
}

func (r *UserRepo) List(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	var out []models.User
	r.s.view(ctx, func(tx *txn) {
		seen := make(map[uuid.UUID]struct{})
		if tx != nil {
			for _, id := range tx.userOrder {
				seen[id] = struct{}{}
				if u := tx.users[id]; f.Match(&u) {
					out = append(out, u.Clone())
				}
			}
		}
		for id, u := range r.s.users {
			if _, ok := seen[id]; ok {
				continue
			}
			if f.Match(&u) {
				out = append(out, u.Clone())
			}
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return paginate(out, f.Limit, f.Offset), nil
}

// Count ignores the filter's Limit and Offset.
func (r *UserRepo) Count(ctx context.Context, f models.UserFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	users, err := r.List(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
