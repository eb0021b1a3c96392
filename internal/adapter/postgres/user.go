package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/postgres"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Version = 1

	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("user repo: Create: encode: %w", err)
	}

	const q = `
		INSERT INTO users (id, role, city, availability, verification, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = TxorDB(ctx, r.db).Exec(ctx, q,
		u.ID, u.Role, u.City, u.Availability, u.Verification, u.Version, doc, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "users_pkey") {
			return types.ErrUserExists
		}
		return fmt.Errorf("user repo: Create: %w", err)
	}
	return nil
}

// Get locks the row when ctx carries a transaction.
func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT doc FROM users WHERE id = $1` + lockClause(ctx)

	var doc []byte
	if err := TxorDB(ctx, r.db).QueryRow(ctx, q, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repo: Get: %w", err)
	}
	return decodeUser(doc)
}

// Update writes u if the stored version still equals u.Version and bumps it.
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	expected := u.Version
	prevUpdatedAt := u.UpdatedAt
	u.Version++
	u.UpdatedAt = time.Now().UTC()

	restore := func() {
		u.Version = expected
		u.UpdatedAt = prevUpdatedAt
	}

	doc, err := json.Marshal(u)
	if err != nil {
		restore()
		return fmt.Errorf("user repo: Update: encode: %w", err)
	}

	const q = `
		UPDATE users
		SET city = $2, availability = $3, verification = $4, version = $5, doc = $6, updated_at = $7
		WHERE id = $1 AND version = $8;
	`
	cmdTag, err := TxorDB(ctx, r.db).Exec(ctx, q,
		u.ID, u.City, u.Availability, u.Verification, u.Version, doc, u.UpdatedAt, expected,
	)
	if err != nil {
		restore()
		return fmt.Errorf("user repo: Update: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		restore()
		return fmt.Errorf("user repo: Update %s at version %d: %w", u.ID, expected, trm.ErrConflict)
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	where, args := userWhere(f)

	q := "SELECT doc FROM users" + where + " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("user repo: List: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("user repo: List: scan: %w", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user repo: List: %w", err)
	}
	return out, nil
}

func (r *UserRepo) Count(ctx context.Context, f models.UserFilter) (int, error) {
	where, args := userWhere(f)

	var total int
	if err := TxorDB(ctx, r.db).QueryRow(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("user repo: Count: %w", err)
	}
	return total, nil
}

func userWhere(f models.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.Role != "" {
		add("role", f.Role)
	}
	if f.City != "" {
		add("city", f.City)
	}
	if f.Availability != "" {
		add("availability", f.Availability)
	}
	if f.Verification != "" {
		add("verification", f.Verification)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeUser(doc []byte) (*models.User, error) {
	var u models.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
