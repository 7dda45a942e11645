package auth

import "context"

// Store is the persistence contract the auth service needs. The Postgres
// repository implements it in production; tests use an in-memory double.
type Store interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	// UserByIdentifier resolves a user by lowercased email or username.
	UserByIdentifier(ctx context.Context, identifier string) (User, error)
	// SetRefreshToken unconditionally overwrites the persisted refresh
	// token. An empty token clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken swaps oldToken for newToken only if oldToken is
	// still the persisted value. Returns ErrRotationConflict when the swap
	// loses to a concurrent rotation, ErrUserNotFound when the user is gone.
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
