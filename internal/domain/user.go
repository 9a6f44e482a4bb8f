package domain

import "time"

// User is the local mirror of a Twitter account that completed the OAuth flow.
// The token fields hold the latest pair issued to that account.
type User struct {
	ID           string    `json:"id"           db:"id"`
	TwitterID    string    `json:"twitterId"    db:"twitter_id"`
	Username     string    `json:"username"     db:"username"`
	Name         string    `json:"name"         db:"name"`
	ProfileImage string    `json:"profileImage" db:"profile_image"`
	AccessToken  string    `json:"-"            db:"access_token"`
	RefreshToken string    `json:"-"            db:"refresh_token"`
	ExpiresAt    *int64    `json:"-"            db:"expires_at"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// Tokens returns the persisted token pair of the user.
func (u *User) Tokens() TokenPair {
	return TokenPair{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		ExpiresAt:    u.ExpiresAt,
	}
}

// Profile is the provider's view of the authenticated account.
type Profile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}
