package auth

import "time"

type User struct {
	ID            string
	FullName      string
	Email         string
	Username      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Projection is the outward shape of a user. The password hash and the
// persisted refresh token never leave the process.
type Projection struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Username   string    `json:"userName"`
	AvatarURL  string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u User) Project() Projection {
	return Projection{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		CoverImage: u.CoverImageURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// TokenPair is one access/refresh issuance. Both strings also travel as
// cookies; the body copy exists for non-cookie clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterParams struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}
