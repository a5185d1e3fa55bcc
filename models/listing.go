package models

import (
	"fmt"
	"strings"
)

// UnknownFloorArea marks a listing whose source does not report a floor area
const UnknownFloorArea = -1

// Listing represents a rental home found on one of the sources
type Listing struct {
	Address string
	City    string
	URL     string
	Source  string // Source id, e.g. "vesteda" or "hexia_antares"
	Price   int    // Whole euros per month
	SQM     int    // Floor area in m², UnknownFloorArea when not reported
}

// ListingKey identifies a listing for deduplication: lower-cased address and city
type ListingKey struct {
	Address string
	City    string
}

// NewListingKey builds the dedup key for an address/city pair
func NewListingKey(address, city string) ListingKey {
	return ListingKey{
		Address: strings.ToLower(address),
		City:    strings.ToLower(city),
	}
}

// Key returns the dedup key of the listing. Price, URL and floor area are ignored.
func (l Listing) Key() ListingKey {
	return NewListingKey(l.Address, l.City)
}

// SameHome reports whether two listings describe the same home
func (l Listing) SameHome(other Listing) bool {
	return l.Key() == other.Key()
}

// HasFloorArea reports whether the floor area is known
func (l Listing) HasFloorArea() bool {
	return l.SQM > 0
}

func (l Listing) String() string {
	return fmt.Sprintf("%s, %s (%s)", l.Address, l.City, l.Source)
}
