package ports

import (
	"context"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

// UserDirectory resolves a user ID to the minimal snapshot the calculator
// needs. Implementations return ErrUserNotFound for unknown IDs.
type UserDirectory interface {
	FindUser(ctx context.Context, userID string) (types.User, error)
}
