// Package domain holds DTOs for metadata http and service contracts
package domain

import "time"

// BookMetadata is the resolved record for one ISBN
// NotFound marks a sentinel produced when every lookup avenue failed,
// so repeated resolution does not hammer the provider
type BookMetadata struct {
	ISBN      string    `json:"isbn" example:"9780593135204"`
	Title     string    `json:"title,omitempty" example:"Project Hail Mary"`
	Author    string    `json:"author,omitempty" example:"Andy Weir"`
	Category  string    `json:"category,omitempty" example:"Science fiction"`
	CoverURL  string    `json:"cover_url,omitempty" example:"https://covers.openlibrary.org/b/id/12390549-L.jpg"`
	Published string    `json:"published,omitempty" example:"2021"`
	NotFound  bool      `json:"not_found,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ResolveInput asks for metadata for a set of ISBNs
type ResolveInput struct {
	ISBNs []string `json:"isbns" validate:"required,min=1,max=200,dive,min=10,max=17"`
}

// ResolveOutput maps every requested ISBN to its metadata
// the map is total: a sentinel is present where lookup failed
type ResolveOutput struct {
	Books map[string]BookMetadata `json:"books"`
}

// SweepOutput reports eviction counts
type SweepOutput struct {
	L1Evicted int   `json:"l1_evicted"`
	L2Deleted int64 `json:"l2_deleted"`
}
