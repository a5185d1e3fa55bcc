package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hestia/models"
	"hestia/normalize"

	"github.com/PuerkitoBio/goquery"
)

// newDocument parses an HTML body
func newDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ownText returns the text nodes directly under s, without the text of child elements
func ownText(s *goquery.Selection) string {
	return s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
}

// cleanText collapses whitespace, including non-breaking spaces
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textPrice parses the price shown in a card, 0 when there is none
func textPrice(s string) int {
	price, ok := normalize.Price(s)
	if !ok {
		return 0
	}
	return price
}

// parsePararius reads the search result cards, skipping cards with a
// "Verhuurd" or "Onder optie" label. Titles start with the home type
// ("Appartement Kerkstraat 10") and subtitles with the postcode or a
// "Te huur" prefix.
func parsePararius(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("section.listing-search-item--for-rent").Each(func(i int, s *goquery.Selection) {
		if unavailable(s.Text()) {
			return
		}
		title := s.Find("a.listing-search-item__link--title").First()
		subtitle := s.Find("div.listing-search-item__sub-title").First()
		price := s.Find("div.listing-search-item__price").First()
		if title.Length() == 0 || subtitle.Length() == 0 || price.Length() == 0 {
			return
		}

		// Many listings have no house number and cannot be tracked by address
		raw := cleanText(ownText(title))
		if !normalize.ValidAddress(raw) {
			return
		}
		words := strings.Fields(raw)

		cityWords := strings.Fields(cleanText(ownText(subtitle)))
		if len(cityWords) < 3 {
			return
		}
		city, _, _ := strings.Cut(strings.Join(cityWords[2:], " "), "(")

		href, _ := title.Attr("href")
		listings = appendBuilt(listings, models.Listing{
			Address: strings.Join(words[1:], " "),
			City:    strings.TrimSpace(city),
			URL:     "https://pararius.nl" + href,
			Price:   textPrice(price.Text()),
		})
	})
	return listings, nil
}

// parseNMG reads rental cards. The heading holds the address followed by the
// city in a span.
func parseNMG(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("article.house.huur").Each(func(i int, s *goquery.Selection) {
		if unavailable(s.Text()) {
			return
		}
		heading := s.Find(".house__content .house__heading h2").First()
		address, _, _ := strings.Cut(strings.TrimSpace(ownText(heading)), "\t")
		href, _ := s.Find(".house__overlay").First().Attr("href")

		listings = appendBuilt(listings, models.Listing{
			Address: address,
			City:    strings.TrimSpace(heading.Find("span").First().Text()),
			URL:     href,
			Price:   textPrice(s.Find(".house__list-item .house__icon--value + span").First().Text()),
		})
	})
	return listings, nil
}

// parseVBO reads property links. Taken homes carry a status label inside the link.
func parseVBO(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("a.propertyLink").Each(func(i int, s *goquery.Selection) {
		if unavailable(s.Text()) {
			return
		}
		href, _ := s.Attr("href")
		listings = appendBuilt(listings, models.Listing{
			Address: s.Find(".street").First().Text(),
			City:    strings.TrimSpace(s.Find(".city").First().Text()),
			URL:     href,
			Price:   textPrice(s.Find(".price").First().Text()),
		})
	})
	return listings, nil
}

// parseAtta reads the object list, skipping objects labelled as taken
func parseAtta(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("div.list__object").Each(func(i int, s *goquery.Selection) {
		if unavailable(s.Text()) {
			return
		}
		href, _ := s.Find("a").First().Attr("href")
		listings = appendBuilt(listings, models.Listing{
			Address: s.Find(".object-list__address").First().Text(),
			City:    strings.TrimSpace(s.Find(".object-list__city").First().Text()),
			URL:     href,
			Price:   textPrice(s.Find(".object-list__price").First().Text()),
		})
	})
	return listings, nil
}

// parseVanderLinden reads the home cards, skipping cards labelled as taken.
// A price range uses its lower bound and "Op aanvraag" has no price.
func parseVanderLinden(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("div.woninginfo").Each(func(i int, s *goquery.Selection) {
		if unavailable(s.Find(".fotolabel").Text()) {
			return
		}
		href, ok := s.Find("a.blocklink").First().Attr("href")
		if !ok {
			return
		}
		listings = appendBuilt(listings, models.Listing{
			Address: s.Find("strong").First().Text(),
			City:    strings.TrimSpace(s.Find("div.text-80.mb-0").First().Text()),
			URL:     "https://www.vanderlinden.nl" + href,
			Price:   textPrice(s.Find("div.mt-2").First().Text()),
		})
	})
	return listings, nil
}

// houseNumber matches a trackable house number token such as "10", "10A" or "130-1105"
var houseNumber = regexp.MustCompile(`^(\d+)[A-Za-z]?(-\d+)?$`)

// hasHouseNumber reports whether an address carries a usable house number.
// Placeholder numbers like "0ong" (unnumbered) are rejected.
func hasHouseNumber(address string) bool {
	for _, word := range strings.Fields(address) {
		m := houseNumber.FindStringSubmatch(word)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return true
		}
	}
	return false
}

// parseWooove reads the home list, skipping cards with a status button for
// taken homes and addresses without a house number
func parseWooove(body []byte) ([]models.Listing, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	doc.Find("div.woningList a").Each(func(i int, s *goquery.Selection) {
		street := s.Find("span.straat").First()
		if street.Length() == 0 {
			return
		}
		if unavailable(s.Find(".statusbutton").Text()) {
			return
		}
		address := cleanText(street.Text())
		if !hasHouseNumber(address) {
			return
		}

		href, _ := s.Attr("href")
		listings = appendBuilt(listings, models.Listing{
			Address: address,
			City:    cleanText(s.Find("span.plaats").First().Text()),
			URL:     "https://hurenbijwooove.nl" + href,
			Price:   textPrice(s.Find(".prijs").First().Text()),
		})
	})
	return listings, nil
}
