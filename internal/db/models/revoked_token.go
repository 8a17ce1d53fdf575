package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RevokedToken is a denylist entry for a bearer token revoked before its expiry.
// Only the SHA-256 hash of the token is stored.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rt"`

	TokenHash string    `bun:"token_hash,pk,type:varchar(64)"`
	Subject   string    `bun:"subject"`              // sub claim, audit only
	ExpiresAt time.Time `bun:"expires_at,notnull"`   // row is ignored, then swept, after this
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"`
	Reason    string    `bun:"reason"`
}
