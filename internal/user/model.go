package user

import "time"

// Profile is the public view of a user row. Credential and session fields
// are not selected by this package at all.
type Profile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Username   string    `json:"userName"`
	AvatarURL  string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
