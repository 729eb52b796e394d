package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstevenyung/jumpdash/internal/domain"
	"github.com/xstevenyung/jumpdash/internal/platform/crypto"
)

const accessColumns = "id, user_id, type, token, created_at"

// AccessRepo stores tokens sealed by the configured cipher and opens them on read.
type AccessRepo struct {
	pool   *pgxpool.Pool
	cipher crypto.Cipher
}

func NewAccessRepo(pool *pgxpool.Pool, cipher crypto.Cipher) *AccessRepo {
	return &AccessRepo{pool: pool, cipher: cipher}
}

func (r *AccessRepo) scan(row pgx.Row) (*domain.Access, error) {
	var a domain.Access
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Token, &a.CreatedAt); err != nil {
		return nil, err
	}

	token, err := r.cipher.Decrypt(a.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	a.Token = token
	return &a, nil
}

func (r *AccessRepo) ListByUser(ctx context.Context, userID string) ([]domain.Access, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accessColumns+` FROM accesses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accesses: %w", err)
	}

	accesses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Access, error) {
		a, err := r.scan(row)
		if err != nil {
			return domain.Access{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan accesses: %w", err)
	}
	return accesses, nil
}

func (r *AccessRepo) Find(ctx context.Context, userID, accessType string) (*domain.Access, error) {
	a, err := r.scan(r.pool.QueryRow(ctx,
		`SELECT `+accessColumns+` FROM accesses WHERE user_id = $1 AND type = $2`, userID, accessType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access: %w", err)
	}
	return a, nil
}

func (r *AccessRepo) CreateIfAbsent(ctx context.Context, userID, accessType, token string) (*domain.Access, bool, error) {
	sealed, err := r.cipher.Encrypt(token)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	a, err := r.scan(r.pool.QueryRow(ctx,
		`INSERT INTO accesses (user_id, type, token) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, type) DO NOTHING
		 RETURNING `+accessColumns,
		userID, accessType, sealed))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create access: %w", err)
	}

	// No row returned: an earlier callback already stored a token.
	existing, err := r.Find(ctx, userID, accessType)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
