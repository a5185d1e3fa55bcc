package parser

import (
	"encoding/json"
	"fmt"

	"hestia/models"
	"hestia/normalize"
)

// hexiaDetailURLs maps each housing corporation on the Hexia platform to the
// path its listings are published under
var hexiaDetailURLs = map[string]string{
	"antares":                "https://wonen.thuisbijantares.nl/aanbod/nu-te-huur/te-huur/details/",
	"dewoningzoeker":         "https://www.dewoningzoeker.nl/aanbod/te-huur/details/",
	"frieslandhuurt":         "https://www.frieslandhuurt.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"hollandrijnland":        "https://www.hureninhollandrijnland.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"hwwonen":                "https://www.thuisbijhwwonen.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"klikvoorwonen":          "https://www.klikvoorwonen.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"mercatus-aanbod":        "https://woningaanbod.mercatus.nl/aanbod/te-huur/details/",
	"mosaic-plaza":           "https://plaza.newnewnew.space/aanbod/huurwoningen/details/",
	"noordveluwe":            "https://www.hurennoordveluwe.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"oostwestwonen":          "https://woningzoeken.oostwestwonen.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"studentenenschede":      "https://www.roomspot.nl/aanbod/te-huur/details/",
	"svnk":                   "https://www.svnk.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"thuisindeachterhoek":    "https://www.thuisindeachterhoek.nl/aanbod/te-huur/details/",
	"thuisinlimburg":         "https://www.thuisinlimburg.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"thuiskompas":            "https://www.thuiskompas.nl/aanbod/nu-te-huur/te-huur/details/",
	"thuispoort":             "https://www.thuispoort.nl/aanbod/te-huur/details/",
	"thuispoortstudenten":    "https://www.thuispoortstudentenwoningen.nl/aanbod/details/",
	"woninghuren":            "https://www.woninghuren.nl/aanbod/te-huur/details/",
	"woninginzicht":          "https://www.woninginzicht.nl/aanbod/te-huur/details/",
	"wooniezie":              "https://www.wooniezie.nl/aanbod/nu-te-huur/te-huur/details/",
	"woonkeusstedendriehoek": "https://www.woonkeus-stedendriehoek.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"woonnethaaglanden":      "https://www.woonnet-haaglanden.nl/aanbod/nu-te-huur/te-huur/details/",
	"woontij":                "https://www.wonenindekop.nl/aanbod/nu-te-huur/huurwoningen/details/",
	"zuidwestwonen":          "https://www.zuidwestwonen.nl/aanbod/nu-te-huur/huurwoningen/details/",
}

// newHexiaAdapter builds the adapter for one Hexia corporation
func newHexiaAdapter(corp string) (Adapter, error) {
	prefix, ok := hexiaDetailURLs[corp]
	if !ok {
		return nil, fmt.Errorf("no detail url known for hexia corporation %q", corp)
	}
	return AdapterFunc(func(body []byte) ([]models.Listing, error) {
		return parseHexia(body, prefix)
	}), nil
}

// parseHexia keeps complete rental records
func parseHexia(body []byte, detailURL string) ([]models.Listing, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	type record struct {
		RentBuy string `json:"rentBuy"`
		City    *struct {
			Name *text `json:"name"`
		} `json:"city"`
		Street              *text   `json:"street"`
		HouseNumber         *text   `json:"houseNumber"`
		HouseNumberAddition text    `json:"houseNumberAddition"`
		NetRent             *amount `json:"netRent"`
		URLKey              *text   `json:"urlKey"`
		AreaDwelling        amount  `json:"areaDwelling"`
	}

	var listings []models.Listing
	for _, r := range decodeEach[record](resp.Data) {
		if r.RentBuy != "Huur" {
			continue
		}
		if r.City == nil || r.City.Name == nil || r.Street == nil || r.HouseNumber == nil ||
			r.NetRent == nil || r.URLKey == nil {
			continue
		}
		listings = appendBuilt(listings, models.Listing{
			Address: normalize.Address(r.Street.String(), r.HouseNumber.String(), r.HouseNumberAddition.String()),
			City:    r.City.Name.String(),
			URL:     detailURL + r.URLKey.String(),
			Price:   r.NetRent.Price(),
			SQM:     r.AreaDwelling.Area(),
		})
	}
	return listings, nil
}
