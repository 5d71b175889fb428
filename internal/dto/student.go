package dto

// CreateStudentRequest registers a student under a family.
type CreateStudentRequest struct {
	FamilyID string `json:"family_id" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Grade    string `json:"grade"`
}

// UpdateStudentRequest mutates an existing student.
type UpdateStudentRequest struct {
	FamilyID string `json:"family_id" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Grade    string `json:"grade"`
	Active   bool   `json:"active"`
}
