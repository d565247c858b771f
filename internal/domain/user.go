package domain

import "time" // Timestamps

// User Model
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                                // Primary key
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // Unique email, case-sensitive as stored
	PasswordHash string    `gorm:"not null" json:"-"`                                   // Salted bcrypt hash
	CreatedAt    time.Time `json:"created_at"`                                          // Registration timestamp
}

// Profile is the public view of a user returned by /me
type Profile struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// Profile strips the credential fields from the user
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email}
}
