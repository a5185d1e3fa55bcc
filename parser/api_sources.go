package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"hestia/models"
	"hestia/normalize"
)

// parseWoonnetRijnmond reads the housing publications GraphQL response
func parseWoonnetRijnmond(body []byte) ([]models.Listing, error) {
	var resp struct {
		Data struct {
			HousingPublications struct {
				Nodes struct {
					Edges []json.RawMessage `json:"edges"`
				} `json:"nodes"`
			} `json:"housingPublications"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type edge struct {
		Node struct {
			Unit struct {
				Location struct {
					AddressLine1 text `json:"addressLine1"`
					AddressLine2 text `json:"addressLine2"`
				} `json:"location"`
				Slug struct {
					Value text `json:"value"`
				} `json:"slug"`
				BasicRent struct {
					Exact amount `json:"exact"`
				} `json:"basicRent"`
			} `json:"unit"`
		} `json:"node"`
	}

	var listings []models.Listing
	for _, e := range decodeEach[edge](resp.Data.HousingPublications.Nodes.Edges) {
		unit := e.Node.Unit
		if unit.Slug.Value == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: unit.Location.AddressLine1.String(),
			City:    unit.Location.AddressLine2.String(),
			URL:     "https://www.woonnetrijnmond.nl/detail/" + unit.Slug.Value.String(),
			Price:   unit.BasicRent.Exact.Price(),
		})
	}
	return listings, nil
}

// parseWoonin keeps rentals that are not rented out yet
func parseWoonin(body []byte) ([]models.Listing, error) {
	var resp struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type object struct {
		Type       string `json:"type"`
		Verhuurd   bool   `json:"verhuurd"`
		Straat     text   `json:"straat"`
		Plaats     text   `json:"plaats"`
		URL        text   `json:"url"`
		VraagPrijs amount `json:"vraagPrijs"`
	}

	var listings []models.Listing
	for _, o := range decodeEach[object](resp.Objects) {
		if o.Type != "huur" || o.Verhuurd {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: o.Straat.String(),
			City:    o.Plaats.String(),
			URL:     "https://ik-zoek.woonin.nl" + o.URL.String(),
			Price:   o.VraagPrijs.Price(),
		})
	}
	return listings, nil
}

// parseVesteda keeps available homes that are not reserved for seniors.
// Status 0 is a project, anything above 1 is taken.
func parseVesteda(body []byte) ([]models.Listing, error) {
	var resp struct {
		Results struct {
			Objects []json.RawMessage `json:"objects"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type object struct {
		Status              int    `json:"status"`
		OnlySixtyFivePlus   bool   `json:"onlySixtyFivePlus"`
		Street              text   `json:"street"`
		HouseNumber         text   `json:"houseNumber"`
		HouseNumberAddition text   `json:"houseNumberAddition"`
		City                text   `json:"city"`
		URL                 text   `json:"url"`
		PriceUnformatted    amount `json:"priceUnformatted"`
		Size                amount `json:"size"`
	}

	var listings []models.Listing
	for _, o := range decodeEach[object](resp.Results.Objects) {
		if o.Status != 1 || o.OnlySixtyFivePlus {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(o.Street.String(), o.HouseNumber.String()) + o.HouseNumberAddition.String(),
			City:    o.City.String(),
			URL:     "https://vesteda.com" + o.URL.String(),
			Price:   o.PriceUnformatted.Price(),
			SQM:     o.Size.Area(),
		})
	}
	return listings, nil
}

// parseVBT skips houses that are also published by Bouwinvest
func parseVBT(body []byte) ([]models.Listing, error) {
	var resp struct {
		Houses []json.RawMessage `json:"houses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type house struct {
		IsBouwinvest bool `json:"isBouwinvest"`
		Address      struct {
			House text `json:"house"`
			City  text `json:"city"`
		} `json:"address"`
		Source struct {
			ExternalLink text `json:"externalLink"`
		} `json:"source"`
		Prices struct {
			Rental struct {
				Price amount `json:"price"`
			} `json:"rental"`
		} `json:"prices"`
		Surface amount `json:"surface"`
	}

	var listings []models.Listing
	for _, h := range decodeEach[house](resp.Houses) {
		if h.IsBouwinvest {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: h.Address.House.String(),
			City:    h.Address.City.String(),
			URL:     h.Source.ExternalLink.String(),
			Price:   h.Prices.Rental.Price.Price(),
			SQM:     h.Surface.Area(),
		})
	}
	return listings, nil
}

// parseAlliantie keeps results inside the requested selection. The API has no
// city field, so it is taken from the second segment of the listing path.
func parseAlliantie(body []byte) ([]models.Listing, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type item struct {
		IsInSelection bool   `json:"isInSelection"`
		Address       text   `json:"address"`
		URL           text   `json:"url"`
		Price         amount `json:"price"`
	}

	var listings []models.Listing
	for _, it := range decodeEach[item](resp.Data) {
		if !it.IsInSelection {
			continue
		}
		path := it.URL.String()
		city, ok := alliantieCity(path)
		if !ok {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: it.Address.String(),
			City:    city,
			URL:     "https://ik-zoek.de-alliantie.nl/" + strings.ReplaceAll(path, " ", "%20"),
			Price:   it.Price.Price(),
		})
	}
	return listings, nil
}

// alliantieCity extracts "Amsterdam" from "huren/amsterdam/dorpsstraat-5-abc123"
func alliantieCity(path string) (string, bool) {
	_, rest, ok := strings.Cut(path, "/")
	if !ok {
		return "", false
	}
	city, _, ok := strings.Cut(rest, "/")
	if !ok || city == "" {
		return "", false
	}
	return normalize.Capitalize(city), true
}

// newWoningnetAdapter builds the adapter for one WoningNet region, e.g. "dak"
func newWoningnetAdapter(regio string) (Adapter, error) {
	return AdapterFunc(func(body []byte) ([]models.Listing, error) {
		return parseWoningnet(body, regio)
	}), nil
}

// parseWoningnet skips senior housing and publications without a rent
func parseWoningnet(body []byte, regio string) ([]models.Listing, error) {
	var resp struct {
		Data struct {
			PublicatieLijst struct {
				List []json.RawMessage `json:"List"`
			} `json:"PublicatieLijst"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type publicatie struct {
		ID              text `json:"Id"`
		PublicatieLabel text `json:"PublicatieLabel"`
		Adres           struct {
			Straatnaam           text `json:"Straatnaam"`
			Huisnummer           text `json:"Huisnummer"`
			HuisnummerToevoeging text `json:"HuisnummerToevoeging"`
			Woonplaats           text `json:"Woonplaats"`
		} `json:"Adres"`
		Eenheid struct {
			Brutohuur amount `json:"Brutohuur"`
		} `json:"Eenheid"`
	}

	var listings []models.Listing
	for _, p := range decodeEach[publicatie](resp.Data.PublicatieLijst.List) {
		if strings.Contains(string(p.PublicatieLabel), "Seniorenwoning") || p.ID == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(p.Adres.Straatnaam.String(), p.Adres.Huisnummer.String(), p.Adres.HuisnummerToevoeging.String()),
			City:    p.Adres.Woonplaats.String(),
			URL:     fmt.Sprintf("https://%s.mijndak.nl/HuisDetails?PublicatieId=%s", regio, p.ID.String()),
			Price:   p.Eenheid.Brutohuur.Price(),
		})
	}
	return listings, nil
}

// parseBouwinvest skips project pages, which bundle several units
func parseBouwinvest(body []byte) ([]models.Listing, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type item struct {
		Class   string `json:"class"`
		Name    text   `json:"name"`
		URL     text   `json:"url"`
		Address struct {
			City text `json:"city"`
		} `json:"address"`
		Price struct {
			Price amount `json:"price"`
		} `json:"price"`
	}

	var listings []models.Listing
	for _, it := range decodeEach[item](resp.Data) {
		if it.Class == "Project" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: it.Name.String(),
			City:    it.Address.City.String(),
			URL:     it.URL.String(),
			Price:   it.Price.Price.Price(),
		})
	}
	return listings, nil
}

// parseKRK keeps available rentals
func parseKRK(body []byte) ([]models.Listing, error) {
	var resp struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type object struct {
		BuyOrRent          string `json:"buy_or_rent"`
		AvailabilityStatus string `json:"availability_status"`
		ShortTitle         text   `json:"short_title"`
		Place              text   `json:"place"`
		URL                text   `json:"url"`
		RentPrice          amount `json:"rent_price"`
		LivingArea         amount `json:"usable_area_living_function"`
	}

	var listings []models.Listing
	for _, o := range decodeEach[object](resp.Objects) {
		if o.BuyOrRent != "rent" || strings.ToLower(o.AvailabilityStatus) != "beschikbaar" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: o.ShortTitle.String(),
			City:    o.Place.String(),
			URL:     o.URL.String(),
			Price:   o.RentPrice.Price(),
			SQM:     o.LivingArea.Area(),
		})
	}
	return listings, nil
}

// parseFunda reads the first search response. Hits without a house number or
// rent price are projects or sale listings.
func parseFunda(body []byte) ([]models.Listing, error) {
	var resp struct {
		Responses []struct {
			Hits struct {
				Hits []json.RawMessage `json:"hits"`
			} `json:"hits"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}

	type hit struct {
		Source struct {
			Address struct {
				StreetName        text  `json:"street_name"`
				HouseNumber       *text `json:"house_number"`
				HouseNumberSuffix *text `json:"house_number_suffix"`
				City              text  `json:"city"`
			} `json:"address"`
			Price struct {
				RentPrice []amount `json:"rent_price"`
			} `json:"price"`
			FloorArea  []amount `json:"floor_area"`
			DetailPath text     `json:"object_detail_page_relative_url"`
		} `json:"_source"`
	}

	var listings []models.Listing
	for _, h := range decodeEach[hit](resp.Responses[0].Hits.Hits) {
		src := h.Source
		if src.Address.HouseNumber == nil || len(src.Price.RentPrice) == 0 {
			continue
		}

		address := normalize.Address(src.Address.StreetName.String(), src.Address.HouseNumber.String())
		if src.Address.HouseNumberSuffix != nil {
			suffix := src.Address.HouseNumberSuffix.String()
			if !strings.ContainsAny(suffix, "-+") {
				suffix = " " + suffix
			}
			address += suffix
		}

		sqm := models.UnknownFloorArea
		if len(src.FloorArea) > 0 {
			sqm = src.FloorArea[0].Area()
		}

		listings = appendBuilt(listings, models.Listing{
			Address: address,
			City:    src.Address.City.String(),
			URL:     "https://funda.nl" + src.DetailPath.String(),
			Price:   src.Price.RentPrice[0].Price(),
			SQM:     sqm,
		})
	}
	return listings, nil
}

// parseRebo reads the search index hits
func parseRebo(body []byte) ([]models.Listing, error) {
	var resp struct {
		Hits []json.RawMessage `json:"hits"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type hit struct {
		Address text   `json:"address"`
		City    text   `json:"city"`
		Slug    text   `json:"slug"`
		Price   amount `json:"price"`
	}

	var listings []models.Listing
	for _, h := range decodeEach[hit](resp.Hits) {
		if h.Slug == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: h.Address.String(),
			City:    h.City.String(),
			URL:     "https://www.rebogroep.nl/nl/aanbod/" + h.Slug.String(),
			Price:   h.Price.Price(),
		})
	}
	return listings, nil
}

// parseOoms keeps rentals
func parseOoms(body []byte) ([]models.Listing, error) {
	var resp struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type object struct {
		Filters struct {
			BuyRent string `json:"buy_rent"`
		} `json:"filters"`
		Slug                text   `json:"slug"`
		StreetName          text   `json:"street_name"`
		HouseNumber         text   `json:"house_number"`
		HouseNumberAddition text   `json:"house_number_addition"`
		Place               text   `json:"place"`
		RentPrice           amount `json:"rent_price"`
		UsableArea          amount `json:"usable_area"`
	}

	var listings []models.Listing
	for _, o := range decodeEach[object](resp.Objects) {
		if o.Filters.BuyRent != "rent" || o.Slug == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(o.StreetName.String(), o.HouseNumber.String(), o.HouseNumberAddition.String()),
			City:    o.Place.String(),
			URL:     "https://ooms.com/wonen/aanbod/" + o.Slug.String(),
			Price:   o.RentPrice.Price(),
			SQM:     o.UsableArea.Area(),
		})
	}
	return listings, nil
}

// entreeSkippedTypes are object types that are not homes
var entreeSkippedTypes = map[string]bool{
	"Garage":        true,
	"Parkeerplaats": true,
}

// parseEntree skips garages, parking spots and whole building clusters
func parseEntree(body []byte) ([]models.Listing, error) {
	var resp struct {
		D struct {
			Aanbod []json.RawMessage `json:"aanbod"`
		} `json:"d"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type aanbod struct {
		ID         text   `json:"id"`
		ObjectType string `json:"objecttype"`
		Gebruik    string `json:"gebruik"`
		Straat     text   `json:"straat"`
		Huisnummer text   `json:"huisnummer"`
		Huisletter text   `json:"huisletter"`
		Plaats     text   `json:"plaats"`
		Kalehuur   amount `json:"kalehuur"`
	}

	var listings []models.Listing
	for _, a := range decodeEach[aanbod](resp.D.Aanbod) {
		if entreeSkippedTypes[a.ObjectType] || a.Gebruik == "Cluster" || a.ID == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(a.Straat.String(), a.Huisnummer.String()) + a.Huisletter.String(),
			City:    a.Plaats.String(),
			URL:     "https://entree.nu/detail/" + a.ID.String(),
			Price:   a.Kalehuur.Price(),
		})
	}
	return listings, nil
}

// parse123Wonen keeps rentals
func parse123Wonen(body []byte) ([]models.Listing, error) {
	var resp struct {
		Pointers []json.RawMessage `json:"pointers"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type pointer struct {
		Transaction     string `json:"transaction"`
		DetailURL       text   `json:"detailurl"`
		Address         text   `json:"address"`
		AddressNum      text   `json:"address_num"`
		AddressNumExtra text   `json:"address_num_extra"`
		City            text   `json:"city"`
		Price           amount `json:"price"`
	}

	var listings []models.Listing
	for _, p := range decodeEach[pointer](resp.Pointers) {
		if p.Transaction != "Verhuur" || p.DetailURL == "" {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(p.Address.String(), p.AddressNum.String()) + p.AddressNumExtra.String(),
			City:    p.City.String(),
			URL:     "https://www.123wonen.nl/" + p.DetailURL.String(),
			Price:   p.Price.Price(),
		})
	}
	return listings, nil
}
