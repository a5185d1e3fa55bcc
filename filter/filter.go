package filter

import (
	"slices"
	"strings"

	"hestia/models"
)

// Matches reports whether a listing satisfies a subscriber's filter: price
// within the inclusive range, city and source among the selected ones, and a
// floor area that is unknown or at least the minimum
func Matches(sub models.Subscriber, l models.Listing) bool {
	f := sub.Filter

	if l.Price < f.MinPrice || l.Price > f.MaxPrice {
		return false
	}

	if !slices.Contains(f.Cities, strings.ToLower(l.City)) {
		return false
	}

	if !slices.Contains(f.Sources, strings.ToLower(l.Source)) {
		return false
	}

	// Many sources never report a floor area; those listings are not held back.
	if f.MinSQM > 0 && l.HasFloorArea() && l.SQM < f.MinSQM {
		return false
	}

	return true
}

// Filter selects recipients for listings out of a fixed set of subscribers
type Filter struct {
	subscribers []models.Subscriber
}

// New creates a new Filter instance
func New(subscribers []models.Subscriber) *Filter {
	return &Filter{subscribers: subscribers}
}

// Recipients returns the subscribers whose filter matches the listing, in
// subscriber order
func (f *Filter) Recipients(l models.Listing) []models.Subscriber {
	var matched []models.Subscriber
	for _, sub := range f.subscribers {
		if Matches(sub, l) {
			matched = append(matched, sub)
		}
	}
	return matched
}
