// Package userdomain holds the user directory entries shown next to contest
// results.
package userdomain

import "strconv"

// User is a global account joined with its per-domain display name.
type User struct {
	UID         int64  `json:"uid"`
	Uname       string `json:"uname"`
	Mail        string `json:"mail,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	School      string `json:"school,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	// Placeholder is set for directory entries synthesized for unknown uids.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Name is what scoreboards print for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Uname
}

// PlaceholderUser stands in for a uid the directory does not know.
func PlaceholderUser(uid int64) *User {
	return &User{
		UID:         uid,
		Uname:       "Unknown User " + strconv.FormatInt(uid, 10),
		Placeholder: true,
	}
}
