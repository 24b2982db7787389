package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	FullName     string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	IsConfirmed  bool
}

// Profile is the public projection of a User. It never carries the password hash.
type Profile struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"created_at"`
	IsConfirmed bool      `json:"is_confirmed"`
}

// Profile returns the externally visible fields of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		Username:    u.Username,
		CreatedAt:   u.CreatedAt,
		IsConfirmed: u.IsConfirmed,
	}
}
