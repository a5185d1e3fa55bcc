package parser

import (
	"encoding/json"
	"net/url"
	"strings"

	"hestia/jsresolve"
	"hestia/models"
	"hestia/normalize"

	"github.com/PuerkitoBio/goquery"
)

// parseWoonmatchWaterland reads the Next.js page state. A page without the
// state script has no listings.
func parseWoonmatchWaterland(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}
	script := doc.Find(`script#__NEXT_DATA__`).First()
	if script.Length() == 0 {
		return nil, nil
	}

	var state struct {
		Props struct {
			PageProps struct {
				Houses []json.RawMessage `json:"houses"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &state); err != nil {
		return nil, nil
	}

	type house struct {
		Advert  text `json:"advert"`
		Address struct {
			Street text `json:"street"`
			Number text `json:"number"`
			City   text `json:"city"`
		} `json:"address"`
		Details struct {
			GrossRent amount `json:"grossrent"`
		} `json:"details"`
	}

	var listings []models.Listing
	for _, h := range decodeEach[house](state.Props.PageProps.Houses) {
		if h.Advert == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(h.Address.Street.String(), h.Address.Number.String()),
			City:    h.Address.City.String(),
			URL:     "https://woonmatchwaterland.nl/houses/" + h.Advert.String(),
			Price:   h.Details.GrossRent.Price(),
		})
	}
	return listings, nil
}

// nuxtRental is one entry of the "rent" array in a Nuxt page state
type nuxtRental struct {
	Status       text `json:"status"`
	MappedStatus text `json:"mappedStatus"`
	Slug         text `json:"slug"`
	Address      struct {
		Street               text `json:"street"`
		HouseNumber          text `json:"houseNumber"`
		HouseNumberExtension text `json:"houseNumberExtension"`
		Location             text `json:"location"`
	} `json:"address"`
	Handover struct {
		Price amount `json:"price"`
	} `json:"handover"`
}

func (r nuxtRental) address() string {
	return normalize.Address(r.Address.Street.String(), r.Address.HouseNumber.String(), r.Address.HouseNumberExtension.String())
}

// nuxtRentals recovers the "rent" array from the __NUXT__ script of a page.
// Pages without the script, or with a script that cannot be resolved, have no rentals.
func nuxtRentals(body []byte) ([]nuxtRental, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var script string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if content := s.Text(); strings.Contains(content, "__NUXT__") {
			script = content
			return false
		}
		return true
	})
	if script == "" {
		return nil, nil
	}

	var items []any
	if err := jsresolve.Resolve(script, "rent", &items); err != nil {
		return nil, nil
	}

	records := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		records = append(records, raw)
	}
	return decodeEach[nuxtRental](records), nil
}

// parseWoonzeker skips homes under option
func parseWoonzeker(body []byte) ([]models.Listing, error) {
	rentals, err := nuxtRentals(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	for _, r := range rentals {
		if strings.EqualFold(r.MappedStatus.String(), "onder optie") || r.Slug == "" {
			continue
		}
		city := r.Address.Location.String()
		listings = appendBuilt(listings, models.Listing{
			Address: r.address(),
			City:    city,
			URL:     "https://woonzeker.com/aanbod/" + url.PathEscape(city) + "/" + url.PathEscape(r.Slug.String()),
			Price:   r.Handover.Price.Price(),
		})
	}
	return listings, nil
}

// parseRoofz skips rented homes, homes under option and entries without a street
func parseRoofz(body []byte) ([]models.Listing, error) {
	rentals, err := nuxtRentals(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	for _, r := range rentals {
		if unavailable(r.Status.String()) || r.Address.Street.String() == "" || r.Slug == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: r.address(),
			City:    r.Address.Location.String(),
			URL:     "https://roofz.eu/availability/" + r.Slug.String(),
			Price:   r.Handover.Price.Price(),
		})
	}
	return listings, nil
}
