package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("email or username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
	// ErrTokenReuse means a refresh token verified cryptographically but no
	// longer matches the persisted value: it was already rotated or revoked.
	ErrTokenReuse = errors.New("refresh token already rotated")
	// ErrRotationConflict means the conditional store update lost to a
	// concurrent rotation for the same user.
	ErrRotationConflict = errors.New("refresh token rotation conflict")
)
