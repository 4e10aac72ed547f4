package model

import "time"

// Book is a catalogue record. Copy counts are derived from its Items.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Collection      string     `json:"collection,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	PublishedYear   int        `json:"published_year,omitempty"`
	CoverMime       string     `json:"cover_mime,omitempty"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}
