package model

import "time"

// User represents an account document in MongoDB. The document id is the
// stable user id issued at signup and never changes afterwards.
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Name         string     `json:"name" bson:"name"`
	Email        string     `json:"email" bson:"email"`
	Avatar       string     `json:"avatar" bson:"avatar"`
	PasswordHash string     `json:"-" bson:"password_hash"`
	IsOnline     bool       `json:"isOnline" bson:"is_online"`
	LastSeen     time.Time  `json:"lastSeen" bson:"last_seen"`
	CreatedAt    time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt    *time.Time `json:"updatedAt" bson:"updated_at"`
}

// PublicProfile is the directory view of a user, without credentials.
type PublicProfile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Public strips the credential fields off a user document.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}
