package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service owns the credential and session token lifecycle: credential
// verification, token issuance, and refresh rotation with reuse detection.
type Service struct {
	store  Store
	issuer *Issuer
}

func NewService(store Store, issuer *Issuer) *Service {
	return &Service{store: store, issuer: issuer}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, User{
		FullName:      strings.TrimSpace(params.FullName),
		Email:         strings.TrimSpace(strings.ToLower(params.Email)),
		Username:      strings.TrimSpace(strings.ToLower(params.Username)),
		PasswordHash:  string(hash),
		AvatarURL:     params.AvatarURL,
		CoverImageURL: params.CoverImageURL,
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// Login verifies the credentials and establishes a session. Tokens are only
// returned once the refresh token has been persisted; a store failure after
// issuance yields no tokens at all.
func (s *Service) Login(ctx context.Context, identifier, password string) (User, TokenPair, error) {
	user, err := s.verifyCredentials(ctx, identifier, password)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	pair, err := s.issuer.Issue(user.ID)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.store.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return User{}, TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

// Refresh rotates a session: the presented refresh token must verify
// cryptographically and still be the persisted one. A verified token that no
// longer matches is treated as reuse; the persisted token is cleared so every
// holder has to log in again.
func (s *Service) Refresh(ctx context.Context, presented string) (User, TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return User{}, TokenPair{}, ErrInvalidToken
	}

	userID, err := s.issuer.VerifyRefresh(presented)
	if err != nil {
		return User{}, TokenPair{}, ErrInvalidToken
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, TokenPair{}, ErrInvalidToken
		}
		return User{}, TokenPair{}, err
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		if err := s.store.SetRefreshToken(ctx, user.ID, ""); err != nil && !errors.Is(err, ErrUserNotFound) {
			return User{}, TokenPair{}, err
		}
		return User{}, TokenPair{}, ErrTokenReuse
	}

	pair, err := s.issuer.Issue(user.ID)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.store.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		switch {
		case errors.Is(err, ErrRotationConflict):
			return User{}, TokenPair{}, ErrTokenReuse
		case errors.Is(err, ErrUserNotFound):
			return User{}, TokenPair{}, ErrInvalidToken
		default:
			return User{}, TokenPair{}, err
		}
	}

	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

// Logout clears the persisted refresh token. Logging out twice is fine; the
// token stays empty either way.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.SetRefreshToken(ctx, userID, ""); err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.UpdatePassword(ctx, userID, string(hash))
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (User, error) {
	return s.store.UserByID(ctx, userID)
}

func (s *Service) verifyCredentials(ctx context.Context, identifier, password string) (User, error) {
	identifier = strings.TrimSpace(strings.ToLower(identifier))
	if identifier == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := s.store.UserByIdentifier(ctx, identifier)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}
