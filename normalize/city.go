// Package normalize turns raw per-source fields into the canonical listing shape.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var provinceSuffix = regexp.MustCompile(` \([a-zA-Z]{2}\)$`)

// cityExceptions maps lower-cased spelling variants to the name used everywhere else
var cityExceptions = map[string]string{
	"'s-gravenhage":          "Den Haag",
	"s-gravenhage":           "Den Haag",
	"'s-hertogenbosch":       "Den Bosch",
	"s-hertogenbosch":        "Den Bosch",
	"alphen aan den rijn":    "Alphen aan den Rijn",
	"alphen a/d rijn":        "Alphen aan den Rijn",
	"koog aan de zaan":       "Koog aan de Zaan",
	"koog a/d zaan":          "Koog aan de Zaan",
	"capelle aan den ijssel": "Capelle aan den IJssel",
	"capelle a/d ijssel":     "Capelle aan den IJssel",
	"berkel-enschot":         "Berkel-Enschot",
	"berkel enschot":         "Berkel-Enschot",
	"oud-beijerland":         "Oud-Beijerland",
	"oud beijerland":         "Oud-Beijerland",
	"etten-leur":             "Etten-Leur",
	"etten leur":             "Etten-Leur",
	"nieuw vennep":           "Nieuw-Vennep",
	"nieuw-vennep":           "Nieuw-Vennep",
	"son en breugel":         "Son en Breugel",
	"bergen op zoom":         "Bergen op Zoom",
	"berkel en rodenrijs":    "Berkel en Rodenrijs",
	"wijk bij duurstede":     "Wijk bij Duurstede",
	"hoogvliet rotterdam":    "Hoogvliet Rotterdam",
	"nederhorst den berg":    "Nederhorst den Berg",
	"huis ter heide":         "Huis ter Heide",
}

// City strips a trailing province code like " (NH)" and maps known spelling
// variants to a single name. City(City(x)) == City(x).
func City(raw string) string {
	city := strings.TrimSpace(raw)
	for provinceSuffix.MatchString(city) {
		city = strings.TrimSpace(provinceSuffix.ReplaceAllString(city, ""))
	}

	if mapped, ok := cityExceptions[strings.ToLower(city)]; ok {
		return mapped
	}
	return city
}

// Capitalize title-cases a lower-cased word using Dutch rules ("ijmuiden" -> "IJmuiden")
func Capitalize(s string) string {
	return cases.Title(language.Dutch).String(strings.ToLower(s))
}
