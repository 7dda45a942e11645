package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, full_name, email, username, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	user.ID = id.String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, username, password_hash, avatar_url, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $8)
	`, user.ID, user.FullName, user.Email, user.Username, user.PasswordHash, user.AvatarURL, user.CoverImageURL, now)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *Repository) UserByIdentifier(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(strings.ToLower(identifier))

	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 OR username = $1
	`, identifier))
}

func (r *Repository) SetRefreshToken(ctx context.Context, userID, token string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = NULLIF($2, ''), updated_at = $3
		WHERE id = $1
	`, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	return requireRow(res, ErrUserNotFound)
}

// RotateRefreshToken is the conditional write behind rotation: the update
// only lands if old is still the persisted value, so two racing refreshes
// for the same user cannot both win.
func (r *Repository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $3, updated_at = $4
		WHERE id = $1 AND refresh_token = $2
	`, userID, oldToken, newToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate refresh token rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.UserByID(ctx, userID); errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrRotationConflict
	}

	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return requireRow(res, ErrUserNotFound)
}

func (r *Repository) scanUser(row *sql.Row) (User, error) {
	var user User
	var avatar, cover, refresh sql.NullString
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Username, &user.PasswordHash,
		&avatar, &cover, &refresh, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}

	user.AvatarURL = avatar.String
	user.CoverImageURL = cover.String
	user.RefreshToken = refresh.String

	return user, nil
}

func requireRow(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
