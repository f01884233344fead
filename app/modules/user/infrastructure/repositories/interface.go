package userdb

import (
	"context"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// Repository defines the persistence contract for the user directory.
//
// Error semantics:
//   - ErrNotFound: requested user does not exist (Get)
//   - ErrDuplicate: Create collided on uid or uname
//   - other errors: infrastructure failures
type Repository interface {
	Create(ctx context.Context, user *userdomain.User) error
	Get(ctx context.Context, domainID string, uid int64) (*userdomain.User, error)
	// GetByUIDs returns the known users among uids, in no particular order.
	GetByUIDs(ctx context.Context, domainID string, uids []int64) ([]*userdomain.User, error)
	SetDisplayName(ctx context.Context, domainID string, uid int64, displayName string) error
}
