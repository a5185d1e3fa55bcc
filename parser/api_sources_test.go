package parser

import (
	"reflect"
	"testing"

	"hestia/models"
)

func home(source, address, city, url string, price int) models.Listing {
	return models.Listing{
		Address: address,
		City:    city,
		URL:     url,
		Source:  source,
		Price:   price,
		SQM:     models.UnknownFloorArea,
	}
}

type parseCase struct {
	name     string
	source   string
	body     string
	expected []models.Listing
}

func runParseCases(t *testing.T, tests []parseCase) {
	t.Helper()
	registry := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Parse(tt.source, []byte(tt.body))
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.source, err)
			}
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.source, got, tt.expected)
			}
		})
	}
}

func TestParseStructuredSources(t *testing.T) {
	runParseCases(t, []parseCase{
		{
			name:   "vesteda",
			source: "vesteda",
			body: `{"results":{"objects":[
				{"status":1,"onlySixtyFivePlus":false,"street":"Kerkstraat","houseNumber":"10","houseNumberAddition":null,
				 "city":"Amsterdam","url":"/huurwoning/amsterdam/kerkstraat-10","priceUnformatted":1500}]}}`,
			expected: []models.Listing{home("vesteda", "Kerkstraat 10", "Amsterdam", "https://vesteda.com/huurwoning/amsterdam/kerkstraat-10", 1500)},
		},
		{
			name:   "vesteda addition is appended without space",
			source: "vesteda",
			body: `{"results":{"objects":[
				{"status":1,"onlySixtyFivePlus":false,"street":"Hoofdweg","houseNumber":"5","houseNumberAddition":"A",
				 "city":"Rotterdam","url":"/huurwoning/rotterdam/hoofdweg-5a","priceUnformatted":1200}]}}`,
			expected: []models.Listing{home("vesteda", "Hoofdweg 5A", "Rotterdam", "https://vesteda.com/huurwoning/rotterdam/hoofdweg-5a", 1200)},
		},
		{
			name:   "vesteda skips projects, taken homes and senior housing",
			source: "vesteda",
			body: `{"results":{"objects":[
				{"status":0,"onlySixtyFivePlus":false,"street":"Straat","houseNumber":"1","city":"Amsterdam","url":"/a","priceUnformatted":1000},
				{"status":2,"onlySixtyFivePlus":false,"street":"Straat","houseNumber":"2","city":"Amsterdam","url":"/b","priceUnformatted":1000},
				{"status":1,"onlySixtyFivePlus":true,"street":"Straat","houseNumber":"3","city":"Amsterdam","url":"/c","priceUnformatted":1000}]}}`,
		},
		{
			name:   "vbt skips bouwinvest duplicates",
			source: "vbt",
			body: `{"houses":[
				{"isBouwinvest":false,"address":{"house":"Kerkstraat 1","city":"Utrecht"},"source":{"externalLink":"https://example.com/1"},"prices":{"rental":{"price":1300}}},
				{"isBouwinvest":true,"address":{"house":"Straat 1","city":"Amsterdam"},"source":{"externalLink":"https://example.com/2"},"prices":{"rental":{"price":1000}}}]}`,
			expected: []models.Listing{home("vbt", "Kerkstraat 1", "Utrecht", "https://example.com/1", 1300)},
		},
		{
			name:   "alliantie takes the city from the path",
			source: "alliantie",
			body: `{"data":[
				{"isInSelection":true,"address":"Dorpsstraat 5","url":"huren/amsterdam/dorpsstraat-5-abc123","price":"€ 1.200"},
				{"isInSelection":false,"address":"Straat 1","url":"huren/amsterdam/straat-1-abc","price":"€ 1.000"}]}`,
			expected: []models.Listing{home("alliantie", "Dorpsstraat 5", "Amsterdam", "https://ik-zoek.de-alliantie.nl/huren/amsterdam/dorpsstraat-5-abc123", 1200)},
		},
		{
			name:   "bouwinvest skips projects",
			source: "bouwinvest",
			body: `{"data":[
				{"class":"Unit","name":"Keizersgracht 100","address":{"city":"Amsterdam"},"url":"https://bouwinvest.nl/1","price":{"price":2000}},
				{"class":"Project","name":"Nieuwbouwproject","address":{"city":"Amsterdam"},"url":"https://bouwinvest.nl/2","price":{"price":1500}}]}`,
			expected: []models.Listing{home("bouwinvest", "Keizersgracht 100", "Amsterdam", "https://bouwinvest.nl/1", 2000)},
		},
		{
			name:   "krk keeps available rentals",
			source: "krk",
			body: `{"objects":[
				{"buy_or_rent":"rent","availability_status":"Beschikbaar","short_title":"Havenstraat 5","place":"Rotterdam","url":"https://krk.nl/havenstraat-5","rent_price":1100},
				{"buy_or_rent":"buy","availability_status":"Beschikbaar","short_title":"Straat 1","place":"Amsterdam","url":"https://krk.nl/1","rent_price":500},
				{"buy_or_rent":"rent","availability_status":"Verhuurd","short_title":"Straat 2","place":"Amsterdam","url":"https://krk.nl/2","rent_price":500}]}`,
			expected: []models.Listing{home("krk", "Havenstraat 5", "Rotterdam", "https://krk.nl/havenstraat-5", 1100)},
		},
		{
			name:   "woningnet region in url and decimal rent",
			source: "woningnet_dak",
			body: `{"data":{"PublicatieLijst":{"List":[
				{"PublicatieLabel":"Eengezinswoning","Adres":{"Straatnaam":"Dorpsweg","Huisnummer":"12","HuisnummerToevoeging":"","Woonplaats":"Zaandam"},"Eenheid":{"Brutohuur":"950.50"},"Id":"pub123"},
				{"PublicatieLabel":"Appartement","Adres":{"Straatnaam":"Dorpsweg","Huisnummer":"12","HuisnummerToevoeging":"B","Woonplaats":"Zaandam"},"Eenheid":{"Brutohuur":"800.0"},"Id":"pub456"},
				{"PublicatieLabel":"Seniorenwoning","Adres":{"Straatnaam":"S","Huisnummer":"1","HuisnummerToevoeging":"","Woonplaats":"Z"},"Eenheid":{"Brutohuur":"800.0"},"Id":"1"},
				{"PublicatieLabel":"Woning","Adres":{"Straatnaam":"Laan","Huisnummer":"1","HuisnummerToevoeging":"","Woonplaats":"Z"},"Eenheid":{"Brutohuur":"0.0"},"Id":"2"}]}}}`,
			expected: []models.Listing{
				home("woningnet_dak", "Dorpsweg 12", "Zaandam", "https://dak.mijndak.nl/HuisDetails?PublicatieId=pub123", 950),
				home("woningnet_dak", "Dorpsweg 12 B", "Zaandam", "https://dak.mijndak.nl/HuisDetails?PublicatieId=pub456", 800),
			},
		},
		{
			name:   "woonnet rijnmond publications",
			source: "woonnet_rijnmond",
			body: `{"data":{"housingPublications":{"nodes":{"edges":[
				{"node":{"unit":{"location":{"addressLine1":"Wijnhaven 20","addressLine2":"Rotterdam"},"slug":{"value":"wijnhaven-20"},"basicRent":{"exact":1350}}}}]}}}}`,
			expected: []models.Listing{home("woonnet_rijnmond", "Wijnhaven 20", "Rotterdam", "https://www.woonnetrijnmond.nl/detail/wijnhaven-20", 1350)},
		},
		{
			name:   "woonnet rijnmond without edges",
			source: "woonnet_rijnmond",
			body:   `{"data":{"housingPublications":{"nodes":{"edges":[]}}}}`,
		},
		{
			name:   "woonin skips rented and sale objects",
			source: "woonin",
			body: `{"objects":[
				{"type":"huur","verhuurd":false,"straat":"Prinsengracht 100","plaats":"Amsterdam","url":"/woning/prinsengracht-100","vraagPrijs":"€ 1.800"},
				{"type":"huur","verhuurd":true,"straat":"Straat 1","plaats":"Amsterdam","url":"/1","vraagPrijs":"€ 1.000"},
				{"type":"koop","verhuurd":false,"straat":"Straat 2","plaats":"Amsterdam","url":"/2","vraagPrijs":"€ 1.000"}]}`,
			expected: []models.Listing{home("woonin", "Prinsengracht 100", "Amsterdam", "https://ik-zoek.woonin.nl/woning/prinsengracht-100", 1800)},
		},
		{
			name:   "funda suffixes",
			source: "funda",
			body: `{"responses":[{"hits":{"hits":[
				{"_source":{"address":{"street_name":"Herengracht","house_number":"100","city":"Amsterdam"},"price":{"rent_price":[2500]},"object_detail_page_relative_url":"/huur/amsterdam/herengracht-100"}},
				{"_source":{"address":{"street_name":"Herengracht","house_number":"102","house_number_suffix":"A","city":"Amsterdam"},"price":{"rent_price":[2000]},"floor_area":[60],"object_detail_page_relative_url":"/huur/amsterdam/herengracht-102a"}},
				{"_source":{"address":{"street_name":"Herengracht","house_number":"104","house_number_suffix":"-1","city":"Amsterdam"},"price":{"rent_price":[2000]},"object_detail_page_relative_url":"/huur/amsterdam/herengracht-104-1"}},
				{"_source":{"address":{"street_name":"Project","city":"Amsterdam"},"price":{"rent_price":[1000]},"object_detail_page_relative_url":"/huur/amsterdam/project"}},
				{"_source":{"address":{"street_name":"Straat","house_number":"1","city":"Amsterdam"},"price":{},"object_detail_page_relative_url":"/huur/amsterdam/straat-1"}}]}}]}`,
			expected: []models.Listing{
				home("funda", "Herengracht 100", "Amsterdam", "https://funda.nl/huur/amsterdam/herengracht-100", 2500),
				{Address: "Herengracht 102 A", City: "Amsterdam", URL: "https://funda.nl/huur/amsterdam/herengracht-102a", Source: "funda", Price: 2000, SQM: 60},
				home("funda", "Herengracht 104-1", "Amsterdam", "https://funda.nl/huur/amsterdam/herengracht-104-1", 2000),
			},
		},
		{
			name:     "rebo",
			source:   "rebo",
			body:     `{"hits":[{"address":"Kerkweg 5","city":"Delft","slug":"kerkweg-5-delft","price":1200}]}`,
			expected: []models.Listing{home("rebo", "Kerkweg 5", "Delft", "https://www.rebogroep.nl/nl/aanbod/kerkweg-5-delft", 1200)},
		},
		{
			name:   "ooms keeps rentals and ignores a null addition",
			source: "ooms",
			body: `{"objects":[
				{"filters":{"buy_rent":"rent"},"slug":"laan-van-meerdervoort-10","street_name":"Laan van Meerdervoort","house_number":"10","house_number_addition":"A","place":"Den Haag","rent_price":1400},
				{"filters":{"buy_rent":"rent"},"slug":"straat-1","street_name":"Straat","house_number":"1","house_number_addition":null,"place":"Amsterdam","rent_price":1000},
				{"filters":{"buy_rent":"buy"},"slug":"straat-2","street_name":"Straat","house_number":"2","house_number_addition":null,"place":"Amsterdam","rent_price":0}]}`,
			expected: []models.Listing{
				home("ooms", "Laan van Meerdervoort 10 A", "Den Haag", "https://ooms.com/wonen/aanbod/laan-van-meerdervoort-10", 1400),
				home("ooms", "Straat 1", "Amsterdam", "https://ooms.com/wonen/aanbod/straat-1", 1000),
			},
		},
		{
			name:   "entree skips non-homes and clusters",
			source: "entree",
			body: `{"d":{"aanbod":[
				{"objecttype":"Woning","gebruik":"Wonen","straat":"Kerkplein","huisnummer":"5","huisletter":"","plaats":"Amersfoort","kalehuur":"985,50","id":"ent123"},
				{"objecttype":"Woning","gebruik":"Wonen","straat":"Kerkplein","huisnummer":"7","huisletter":"B","plaats":"Amersfoort","kalehuur":"900","id":"ent456"},
				{"objecttype":"Garage","gebruik":"Wonen","straat":"Straat","huisnummer":"1","huisletter":"","plaats":"X","kalehuur":"100","id":"1"},
				{"objecttype":"Parkeerplaats","gebruik":"Wonen","straat":"Straat","huisnummer":"2","huisletter":"","plaats":"X","kalehuur":"50","id":"2"},
				{"objecttype":"Woning","gebruik":"Cluster","straat":"Straat","huisnummer":"3","huisletter":"","plaats":"X","kalehuur":"800","id":"3"}]}}`,
			expected: []models.Listing{
				home("entree", "Kerkplein 5", "Amersfoort", "https://entree.nu/detail/ent123", 985),
				home("entree", "Kerkplein 7B", "Amersfoort", "https://entree.nu/detail/ent456", 900),
			},
		},
		{
			name:   "123wonen keeps rentals",
			source: "123wonen",
			body: `{"pointers":[
				{"transaction":"Verhuur","detailurl":"woning/kerkstraat-10a","address":"Kerkstraat","address_num":"10","address_num_extra":"A","city":"Amsterdam","price":1400},
				{"transaction":"Verkoop","detailurl":"woning/straat-1","address":"Straat","address_num":"1","address_num_extra":"","city":"Amsterdam","price":500000}]}`,
			expected: []models.Listing{home("123wonen", "Kerkstraat 10A", "Amsterdam", "https://www.123wonen.nl/woning/kerkstraat-10a", 1400)},
		},
	})
}

func TestParseHexia(t *testing.T) {
	runParseCases(t, []parseCase{
		{
			name:   "rental with and without addition",
			source: "hexia_hollandrijnland",
			body: `{"data":[
				{"rentBuy":"Huur","city":{"name":"Leiden"},"street":"Breestraat","houseNumber":"15","houseNumberAddition":null,"netRent":"1250.00","urlKey":"breestraat-15"},
				{"rentBuy":"Huur","city":{"name":"Leiden"},"street":"Breestraat","houseNumber":"17","houseNumberAddition":"B","netRent":"1100","urlKey":"breestraat-17b"}]}`,
			expected: []models.Listing{
				home("hexia_hollandrijnland", "Breestraat 15", "Leiden", "https://www.hureninhollandrijnland.nl/aanbod/nu-te-huur/huurwoningen/details/breestraat-15", 1250),
				home("hexia_hollandrijnland", "Breestraat 17 B", "Leiden", "https://www.hureninhollandrijnland.nl/aanbod/nu-te-huur/huurwoningen/details/breestraat-17b", 1100),
			},
		},
		{
			name:   "sale and incomplete records are skipped",
			source: "hexia_antares",
			body: `{"data":[
				{"rentBuy":"Koop","city":{"name":"Leiden"},"street":"Breestraat","houseNumber":"15","netRent":"1250","urlKey":"breestraat-15"},
				{"rentBuy":"Huur","street":"Breestraat","houseNumber":"15","netRent":"1250","urlKey":"breestraat-15"},
				{"rentBuy":"Huur","city":{"name":"Venlo"},"street":"Markt","houseNumber":1,"netRent":800,"urlKey":"markt-1"}]}`,
			expected: []models.Listing{
				home("hexia_antares", "Markt 1", "Venlo", "https://wonen.thuisbijantares.nl/aanbod/nu-te-huur/te-huur/details/markt-1", 800),
			},
		},
	})
}

func TestParseSkipsMalformedRecords(t *testing.T) {
	body := `{"hits":[
		{"address":"Kerkweg 5","city":"Delft","slug":"kerkweg-5","price":1200},
		"not an object",
		{"address":"Kerkweg 7","city":"Delft","slug":"kerkweg-7","price":"on request"},
		{"address":"Kerkweg 9","city":"Delft","slug":"kerkweg-9","price":{"nested":true}}]}`

	got, err := Default().Parse("rebo", []byte(body))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 1 || got[0].Address != "Kerkweg 5" {
		t.Errorf("Parse() = %+v, want only Kerkweg 5", got)
	}
}

func TestParseTopLevelShapeError(t *testing.T) {
	tests := []struct {
		source string
		body   string
	}{
		{"rebo", `not json`},
		{"vesteda", `{"results":{"objects":"nope"}}`},
		{"hexia_antares", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if _, err := Default().Parse(tt.source, []byte(tt.body)); err == nil {
				t.Errorf("Parse(%q) should fail on %s", tt.source, tt.body)
			}
		})
	}
}
