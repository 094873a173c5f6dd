package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// User is the client copy of a backend user record.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CoverImage   string    `json:"coverImage,omitempty"`
	IsVerified   bool      `json:"isVerified"`
	IsOnline     bool      `json:"isOnline"`
	Favorites    []string  `json:"favorites,omitempty"`
	BlockedUsers []string  `json:"blockedUsers,omitempty"`
	Gallery      []string  `json:"gallery,omitempty"`
	PrivateAlbum []string  `json:"privateAlbum,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Age          int       `json:"age,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	City         string    `json:"city,omitempty"`
	Location     *Location `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Location is a point the client reports for distance-based discovery.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UserRef is a reference to a user. The backend sends either a bare id
// or a populated summary object; both decode into UserRef.
type UserRef struct {
	ID         string `json:"_id"`
	Name       string `json:"name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
	IsOnline   bool   `json:"isOnline,omitempty"`
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = UserRef(p)
	return nil
}

// Ref returns the summary reference for u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Avatar: u.Avatar, IsVerified: u.IsVerified, IsOnline: u.IsOnline}
}

func (u *User) Validate() error {
	if u == nil || u.ID == "" {
		return invalid("user._id", "missing")
	}
	return nil
}

// HasFavorite reports whether userID is in u's favorites list.
func (u *User) HasFavorite(userID string) bool {
	return contains(u.Favorites, userID)
}

// HasBlocked reports whether userID is in u's blocked-users list.
func (u *User) HasBlocked(userID string) bool {
	return contains(u.BlockedUsers, userID)
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender,omitempty"`
	City     string `json:"city,omitempty"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register and Google sign-in.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (r *AuthResponse) Validate() error {
	if r.Token == "" {
		return invalid("token", "missing")
	}
	return r.User.Validate()
}

// UpdateProfileRequest carries the editable profile fields. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name         *string  `json:"name,omitempty"`
	Bio          *string  `json:"bio,omitempty"`
	Age          *int     `json:"age,omitempty"`
	Gender       *string  `json:"gender,omitempty"`
	City         *string  `json:"city,omitempty"`
	Avatar       *string  `json:"avatar,omitempty"`
	CoverImage   *string  `json:"coverImage,omitempty"`
	Gallery      []string `json:"gallery,omitempty"`
	PrivateAlbum []string `json:"privateAlbum,omitempty"`
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
