package models

import "time"

// Student represents a learner belonging to exactly one family.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FamilyID  string    `db:"family_id" json:"family_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Grade     string    `db:"grade" json:"grade"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches Student with family context.
type StudentDetail struct {
	Student
	FamilyName string `db:"family_name" json:"family_name"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	FamilyID  string
	Grade     string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
