package userdb

import (
	"time"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	"github.com/uptrace/bun"
)

// User is the global account row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	UID           int64     `bun:"uid,pk" json:"uid"`
	Uname         string    `bun:"uname,notnull,unique" json:"uname"`
	UnameLower    string    `bun:"uname_lower,notnull,unique" json:"uname_lower"`
	Mail          string    `bun:"mail,nullzero" json:"mail,omitempty"`
	Avatar        string    `bun:"avatar,nullzero" json:"avatar,omitempty"`
	School        string    `bun:"school,nullzero" json:"school,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// DomainUser carries the per-domain display name.
type DomainUser struct {
	bun.BaseModel `bun:"table:domain_users,alias:du"`
	DomainID      string    `bun:"domain_id,pk" json:"domain_id"`
	UID           int64     `bun:"uid,pk" json:"uid"`
	DisplayName   string    `bun:"display_name,nullzero" json:"display_name,omitempty"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (u *User) toDomain(m *DomainUser) *userdomain.User {
	out := &userdomain.User{
		UID:    u.UID,
		Uname:  u.Uname,
		Mail:   u.Mail,
		Avatar: u.Avatar,
		School: u.School,
	}
	if m != nil {
		out.DisplayName = m.DisplayName
	}
	return out
}
