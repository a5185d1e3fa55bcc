package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"hestia/models"
	"hestia/normalize"
)

// unavailableKeywords mark cards of homes that are already gone
var unavailableKeywords = []string{
	"verhuurd",
	"onder optie",
	"onder voorbehoud",
	"gereserveerd",
	"ingetrokken",
	"rented",
	"under option",
	"reserved",
	"withdrawn",
}

// unavailable reports whether a status or label text says the home is taken
func unavailable(status string) bool {
	status = strings.ToLower(status)
	for _, keyword := range unavailableKeywords {
		if strings.Contains(status, keyword) {
			return true
		}
	}
	return false
}

// build finalizes a candidate listing: trims the fields, normalizes the city and
// rejects candidates without a trackable address, a city, a url or a price
func build(l models.Listing) (models.Listing, bool) {
	l.Address = strings.Join(strings.Fields(l.Address), " ")
	l.City = normalize.City(l.City)
	l.URL = strings.TrimSpace(l.URL)
	if l.SQM <= 0 {
		l.SQM = models.UnknownFloorArea
	}

	if !normalize.ValidAddress(l.Address) || l.City == "" || l.URL == "" || l.Price <= 0 {
		return models.Listing{}, false
	}
	return l, true
}

// appendBuilt appends l to listings when it survives build
func appendBuilt(listings []models.Listing, l models.Listing) []models.Listing {
	if built, ok := build(l); ok {
		listings = append(listings, built)
	}
	return listings
}

// Dedup removes listings describing the same home, keeping the first one
func Dedup(listings []models.Listing) []models.Listing {
	seen := make(map[models.ListingKey]struct{}, len(listings))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		key := l.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// decodeEach decodes every raw record into T, skipping records of the wrong shape
func decodeEach[T any](records []json.RawMessage) []T {
	out := make([]T, 0, len(records))
	for _, raw := range records {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// text decodes a JSON string or number as a string. Other values decode to "".
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*t = text(b)
	default:
		*t = ""
	}
	return nil
}

func (t text) String() string {
	return strings.TrimSpace(string(t))
}

// amount decodes a price or area that a source may send as a number or a string
type amount struct {
	value any
}

func (a *amount) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(&a.value)
}

// Price returns the amount in whole euros, 0 when it is missing or not positive
func (a amount) Price() int {
	price, ok := normalize.PriceValue(a.value)
	if !ok {
		return 0
	}
	return price
}

// Area returns the amount as a floor area, models.UnknownFloorArea when implausible
func (a amount) Area() int {
	return normalize.FloorAreaValue(a.value)
}
