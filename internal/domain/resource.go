package domain

import "time"

// Resource is a curated crisis-support entry. Type is its category tag
// (for example "phone", "text" or "web").
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}
