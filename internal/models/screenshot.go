package models

import "time"

// CreatedAtLayout is the fixed-width UTC layout used for CreatedAt.
// Plain lexical ordering of two values matches their chronological ordering.
const CreatedAtLayout = "2006-01-02T15:04:05.000000000Z"

// Screenshot is one catalog record (also written as meta.json inside the item directory)
type Screenshot struct {
	ID              string  `json:"id" yaml:"id"`
	OriginalPath    string  `json:"original_path" yaml:"original_path"`
	AnnotatedPath   *string `json:"annotated_path" yaml:"annotated_path,omitempty"`
	ThumbnailPath   string  `json:"thumbnail_path" yaml:"thumbnail_path"`
	CreatedAt       string  `json:"created_at" yaml:"created_at"`
	TicketID        *string `json:"ticket_id" yaml:"ticket_id,omitempty"`
	UploadedURL     *string `json:"uploaded_url" yaml:"uploaded_url,omitempty"`
	SizeBytes       int64   `json:"size_bytes" yaml:"size_bytes"`
	AnnotationCount int     `json:"annotation_count" yaml:"annotation_count"`
}

// FormatCreatedAt renders t in CreatedAtLayout
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// CreatedTime parses CreatedAt back into a time.Time.
// Records written by other tools may use RFC 3339, so that is accepted too.
func (s *Screenshot) CreatedTime() (time.Time, error) {
	t, err := time.Parse(CreatedAtLayout, s.CreatedAt)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s.CreatedAt)
}

// NormalizeCreatedAt rewrites CreatedAt in CreatedAtLayout so records taken
// from outside the catalog keep lexical ordering intact
func (s *Screenshot) NormalizeCreatedAt() error {
	t, err := s.CreatedTime()
	if err != nil {
		return ValidationError("parse created_at", err)
	}
	s.CreatedAt = FormatCreatedAt(t)
	return nil
}

// Ticket returns the ticket id or "" when absent
func (s *Screenshot) Ticket() string {
	if s.TicketID == nil {
		return ""
	}
	return *s.TicketID
}

// Usage is the live storage usage report
type Usage struct {
	UsedBytes   int64 `json:"used_bytes" yaml:"used_bytes"`
	BudgetBytes int64 `json:"budget_bytes" yaml:"budget_bytes"`
	ItemCount   int   `json:"item_count" yaml:"item_count"`
}

// Percent returns used/budget as a percentage
func (u Usage) Percent() float64 {
	if u.BudgetBytes <= 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.BudgetBytes) * 100
}

// StringPtr returns nil for an empty string, otherwise a pointer to s
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
