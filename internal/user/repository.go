package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already taken")
)

const profileColumns = `id, full_name, email, username, avatar_url, cover_image_url, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UpdateAccount(ctx context.Context, userID, fullName, email string) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET full_name = $2, email = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+profileColumns+`
	`, userID, fullName, strings.ToLower(email), time.Now().UTC())

	profile, err := scanProfile(row)
	if err != nil && isUniqueViolation(err) {
		return Profile{}, ErrEmailTaken
	}
	return profile, err
}

func (r *Repository) UpdateAvatar(ctx context.Context, userID, avatarURL string) (Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET avatar_url = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+profileColumns+`
	`, userID, avatarURL, time.Now().UTC()))
}

func (r *Repository) UpdateCoverImage(ctx context.Context, userID, coverURL string) (Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET cover_image_url = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+profileColumns+`
	`, userID, coverURL, time.Now().UTC()))
}

func (r *Repository) ProfileByUsername(ctx context.Context, username string) (Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))))
}

func scanProfile(row *sql.Row) (Profile, error) {
	var profile Profile
	var avatar, cover sql.NullString
	err := row.Scan(&profile.ID, &profile.FullName, &profile.Email, &profile.Username,
		&avatar, &cover, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}

	profile.AvatarURL = avatar.String
	profile.CoverImage = cover.String

	return profile, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
