package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new user repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == "23505"
	}
	return false
}

// Create inserts a global user.
func (r *Impl) Create(ctx context.Context, user *userdomain.User) error {
	row := &User{
		UID:        user.UID,
		Uname:      user.Uname,
		UnameLower: strings.ToLower(user.Uname),
		Mail:       user.Mail,
		Avatar:     user.Avatar,
		School:     user.School,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("userdb.Create: %w", err)
	}
	return nil
}

// Get returns one user joined with its domain display name.
func (r *Impl) Get(ctx context.Context, domainID string, uid int64) (*userdomain.User, error) {
	users, err := r.GetByUIDs(ctx, domainID, []int64{uid})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users[0], nil
}

// GetByUIDs loads users and their memberships in two queries.
func (r *Impl) GetByUIDs(ctx context.Context, domainID string, uids []int64) ([]*userdomain.User, error) {
	if len(uids) == 0 {
		return []*userdomain.User{}, nil
	}
	var rows []*User
	err := r.db.NewSelect().
		Model(&rows).
		Where("u.uid IN (?)", bun.In(uids)).
		Order("u.uid ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}

	var members []*DomainUser
	err = r.db.NewSelect().
		Model(&members).
		Where("du.domain_id = ?", domainID).
		Where("du.uid IN (?)", bun.In(uids)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}
	byUID := make(map[int64]*DomainUser, len(members))
	for _, m := range members {
		byUID[m.UID] = m
	}

	out := make([]*userdomain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(byUID[row.UID]))
	}
	return out, nil
}

// SetDisplayName upserts the domain membership row.
func (r *Impl) SetDisplayName(ctx context.Context, domainID string, uid int64, displayName string) error {
	row := &DomainUser{
		DomainID:    domainID,
		UID:         uid,
		DisplayName: displayName,
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (domain_id, uid) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("userdb.SetDisplayName: %w", err)
	}
	return nil
}
