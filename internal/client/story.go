package client

import "time"

// Story is the content entity served by the stories endpoint. IDs are
// assigned by the remote store and never mutated locally; UpdatedDate is
// always at or after CreatedDate.
type Story struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Slug        string    `json:"slug,omitempty"`
	IsPublished bool      `json:"is_published"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// StoryDraft is the client-side input for Create and Update. The server
// assigns everything else (id, slug when empty, timestamps).
type StoryDraft struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Slug        string `json:"slug,omitempty"`
	IsPublished bool   `json:"is_published"`
}

// ListResponse is the wire envelope for paginated list calls.
type ListResponse struct {
	Items  []Story `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// HealthStatus is the payload of the endpoint's health route.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
