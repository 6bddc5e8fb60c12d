package auth

import (
	"context"
	"time"
)

// TokenBlacklist defines the storage operations for revoked tokens.
type TokenBlacklist interface {
	// Add blacklists the jti until the token's original expiration time,
	// after which the entry may be dropped automatically.
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted reports whether the jti is present in the blacklist.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}
