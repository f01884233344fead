package userdb

import (
	"context"
	"strings"
	"sync"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

type memberKey struct {
	domainID string
	uid      int64
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[int64]userdomain.User
	unames  map[string]int64
	members map[memberKey]string
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   map[int64]userdomain.User{},
		unames:  map[string]int64{},
		members: map[memberKey]string{},
	}
}

func (m *MemoryRepository) Create(_ context.Context, user *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lower := strings.ToLower(user.Uname)
	if _, ok := m.users[user.UID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.unames[lower]; ok {
		return ErrDuplicate
	}
	u := *user
	u.DisplayName = ""
	m.users[u.UID] = u
	m.unames[lower] = u.UID
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, domainID string, uid int64) (*userdomain.User, error) {
	users, _ := m.GetByUIDs(ctx, domainID, []int64{uid})
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users[0], nil
}

func (m *MemoryRepository) GetByUIDs(_ context.Context, domainID string, uids []int64) ([]*userdomain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*userdomain.User, 0, len(uids))
	for _, uid := range uids {
		u, ok := m.users[uid]
		if !ok {
			continue
		}
		u.DisplayName = m.members[memberKey{domainID, uid}]
		out = append(out, &u)
	}
	return out, nil
}

func (m *MemoryRepository) SetDisplayName(_ context.Context, domainID string, uid int64, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[memberKey{domainID, uid}] = displayName
	return nil
}
