package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

// UserPGStore resolves user snapshots from iam.users. The calculator only
// needs id, role, and tenant.
type UserPGStore struct {
	pool pgBeginner
}

func NewUserPGStore(pool pgBeginner) ports.UserDirectory {
	return &UserPGStore{pool: pool}
}

func (s *UserPGStore) FindUser(ctx context.Context, userID string) (types.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.User{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var u types.User
	var role string
	if err := tx.QueryRow(ctx, `
SELECT id::text, role, COALESCE(tenant_uuid::text, '')
FROM iam.users
WHERE id = $1::uuid
`, userID).Scan(&u.ID, &role, &u.TenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.User{}, ports.ErrUserNotFound
		}
		return types.User{}, err
	}
	u.Role = types.Role(role)

	if err := tx.Commit(ctx); err != nil {
		return types.User{}, err
	}
	return u, nil
}
