package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a principal: anyone who can sign in, locally or through Google.
// Email is stored trimmed and lower-cased. A nil PasswordHash means the account
// can only sign in through its external provider.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:varchar(36)"`
	ExternalID   *string    `bun:"external_id,unique"` // Google "sub"
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name"`
	PasswordHash *string    `bun:"password_hash"`
	Role         string     `bun:"role,notnull,default:'student'"`
	Provider     string     `bun:"provider,notnull,default:'local'"`
	AvatarURL    string     `bun:"avatar_url"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
	DisabledAt   *time.Time `bun:"disabled_at"`
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u != nil && u.DisabledAt == nil
}

// HasPassword reports whether the account can use the password path.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}
