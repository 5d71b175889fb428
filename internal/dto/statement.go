package dto

import "time"

// StatementFormat selects the rendering of a family fee statement.
type StatementFormat string

// Supported statement formats.
const (
	StatementCSV StatementFormat = "csv"
	StatementPDF StatementFormat = "pdf"
)

// Statement references a rendered family fee statement stored on disk.
type Statement struct {
	ID          string          `json:"id"`
	FamilyID    string          `json:"family_id"`
	Format      StatementFormat `json:"format"`
	FileName    string          `json:"file_name"`
	DownloadURL string          `json:"download_url"`
	ExpiresAt   time.Time       `json:"expires_at"`
	GeneratedAt time.Time       `json:"generated_at"`
}
