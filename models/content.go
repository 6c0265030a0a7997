package models

import "time"

// Page is a static content page (about, programs overview, etc.) sourced
// from the CMS.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Body  string `json:"body"`
}

// Program is one of the organization's program tags used for event
// color-coding and the programs listing.
type Program struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Resource is a local community resource listing (food bank, clinic, ...).
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Description string `json:"description,omitempty"`
}

// Announcement is a dated news item shown on the home page.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"publishedAt"`
}
