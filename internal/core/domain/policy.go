package domain

import "time"

// Policy is a single policy document from the corpus. The search core reads
// policies, it never mutates them.
type Policy struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CategoryID int64     `json:"category_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// User carries the minimum identity needed for login; profile management
// lives outside the search core.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}
