package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"hestia/models"
	"hestia/normalize"

	"github.com/PuerkitoBio/goquery"
)

const hoekstraBaseURL = "https://verhuur.makelaardijhoekstra.nl"

// parseHoekstra reads the property API when the body is JSON. HTML pages are
// read from their JSON-LD data, or from the property cards when there is none.
func parseHoekstra(body []byte) ([]models.Listing, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var resp struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &resp); err == nil && resp.Items != nil {
			return parseHoekstraItems(resp.Items), nil
		}
	}

	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}
	if listings, found := parseHoekstraJSONLD(doc); found {
		return listings, nil
	}
	return parseHoekstraCards(doc), nil
}

// hoekstraURL makes a listing path absolute
func hoekstraURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return hoekstraBaseURL + path
}

func parseHoekstraItems(items []json.RawMessage) []models.Listing {
	type item struct {
		ID           text `json:"id"`
		Status       text `json:"status"`
		Availability *struct {
			Availability text `json:"availability"`
		} `json:"availability"`
		Street              text   `json:"street"`
		HouseNumber         text   `json:"houseNumber"`
		HouseNumberAddition text   `json:"houseNumberAddition"`
		City                text   `json:"city"`
		RentPrice           amount `json:"rentPrice"`
		LivingArea          amount `json:"livingArea"`
	}

	var listings []models.Listing
	for _, it := range decodeEach[item](items) {
		status := it.Status.String()
		if unavailable(status) {
			continue
		}
		if status == "" && (it.Availability == nil || it.Availability.Availability.String() == "") {
			continue
		}
		if it.ID == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(it.Street.String(), it.HouseNumber.String()) + it.HouseNumberAddition.String(),
			City:    it.City.String(),
			URL:     hoekstraBaseURL + "/property-detail.html?id=" + it.ID.String(),
			Price:   it.RentPrice.Price(),
			SQM:     it.LivingArea.Area(),
		})
	}
	return listings
}

// jsonLDHome is a schema.org residence with an offer
type jsonLDHome struct {
	Type    string `json:"@type"`
	URL     text   `json:"url"`
	Address *struct {
		StreetAddress   text `json:"streetAddress"`
		AddressLocality text `json:"addressLocality"`
	} `json:"address"`
	Offers struct {
		Price        amount `json:"price"`
		Availability text   `json:"availability"`
	} `json:"offers"`
	FloorSize struct {
		Value amount `json:"value"`
	} `json:"floorSize"`
	ItemListElement []json.RawMessage `json:"itemListElement"`
}

// parseHoekstraJSONLD reads every ld+json script. found is false when the page
// holds no JSON-LD homes at all.
func parseHoekstraJSONLD(doc *goquery.Document) ([]models.Listing, bool) {
	var homes []jsonLDHome
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		homes = append(homes, jsonLDHomes([]byte(s.Text()))...)
	})
	if len(homes) == 0 {
		return nil, false
	}

	var listings []models.Listing
	for _, h := range homes {
		availability := strings.ToLower(h.Offers.Availability.String())
		if unavailable(availability) || strings.Contains(availability, "outofstock") || strings.Contains(availability, "soldout") {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: h.Address.StreetAddress.String(),
			City:    h.Address.AddressLocality.String(),
			URL:     hoekstraURL(h.URL.String()),
			Price:   h.Offers.Price.Price(),
			SQM:     h.FloorSize.Value.Area(),
		})
	}
	return listings, true
}

// jsonLDHomes unwraps a JSON-LD document into the homes it describes: a single
// home, an ItemList of homes, or an array of either
func jsonLDHomes(raw []byte) []jsonLDHome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		var docs []json.RawMessage
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil
		}
		var homes []jsonLDHome
		for _, d := range docs {
			homes = append(homes, jsonLDHomes(d)...)
		}
		return homes
	}

	var node jsonLDHome
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	if node.Type == "ItemList" {
		var homes []jsonLDHome
		for _, element := range node.ItemListElement {
			var listItem struct {
				Item json.RawMessage `json:"item"`
			}
			if err := json.Unmarshal(element, &listItem); err == nil && len(listItem.Item) > 0 {
				homes = append(homes, jsonLDHomes(listItem.Item)...)
			} else {
				homes = append(homes, jsonLDHomes(element)...)
			}
		}
		return homes
	}
	if node.Address == nil {
		return nil
	}
	return []jsonLDHome{node}
}

// parseHoekstraCards reads plain property cards
func parseHoekstraCards(doc *goquery.Document) []models.Listing {
	var listings []models.Listing
	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}

		var price int
		s.Find("*").EachWithBreak(func(j int, el *goquery.Selection) bool {
			if el.Children().Length() > 0 || !strings.Contains(el.Text(), "€") {
				return true
			}
			price = textPrice(el.Text())
			return false
		})

		listings = appendBuilt(listings, models.Listing{
			Address: s.Find(".address").First().Text(),
			City:    strings.TrimSpace(s.Find(".city").First().Text()),
			URL:     hoekstraURL(href),
			Price:   price,
		})
	})
	return listings
}
