package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"hestia/models"
)

var (
	numberToken = regexp.MustCompile(`\d[\d.,]*\d|\d`)
	anyDigit    = regexp.MustCompile(`[0-9]`)
)

// Price parses a price text such as "€ 1.625,- p/m" into whole euros.
// For a range like "€ 1.090 - 1.160" the lower bound is used.
// ok is false when the text holds no positive amount.
func Price(raw string) (int, bool) {
	text := strings.ReplaceAll(raw, "\u00a0", " ")
	text = strings.ReplaceAll(text, ",-", "")
	text = strings.ReplaceAll(text, ",—", "")

	token := numberToken.FindString(text)
	if token == "" {
		return 0, false
	}

	value, ok := parseAmount(token)
	if !ok || value <= 0 {
		return 0, false
	}
	return value, true
}

// PriceValue parses a price from a decoded JSON value (number or string)
func PriceValue(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		return positiveFloor(value)
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0, false
		}
		return positiveFloor(f)
	case int:
		return value, value > 0
	case int64:
		return int(value), value > 0
	case string:
		return Price(value)
	default:
		return 0, false
	}
}

func positiveFloor(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	value := int(math.Floor(f))
	return value, value > 0
}

// parseAmount resolves a digit token with "." and "," separators to its integer part.
// A separator followed only by three-digit groups separates thousands, otherwise it
// starts the decimals.
func parseAmount(token string) (int, bool) {
	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	intPart := token
	switch {
	case lastDot >= 0 && lastComma >= 0:
		intPart = token[:max(lastDot, lastComma)]
	case lastDot >= 0 && !isThousandsGrouped(token, "."):
		intPart = token[:lastDot]
	case lastComma >= 0 && !isThousandsGrouped(token, ","):
		intPart = token[:lastComma]
	}

	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	value, err := strconv.Atoi(intPart)
	if err != nil {
		return 0, false
	}
	return value, true
}

func isThousandsGrouped(token, sep string) bool {
	groups := strings.Split(token, sep)
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, group := range groups[1:] {
		if len(group) != 3 {
			return false
		}
	}
	return true
}

// FloorArea extracts a plausible floor area in m² from free text.
// Anything outside (0, 2000) yields models.UnknownFloorArea.
func FloorArea(raw string) int {
	value, ok := parseAmount(numberToken.FindString(raw))
	if !ok {
		return models.UnknownFloorArea
	}
	return boundFloorArea(value)
}

// FloorAreaValue extracts a floor area from a decoded JSON value
func FloorAreaValue(v any) int {
	switch value := v.(type) {
	case float64:
		return boundFloorArea(int(math.Floor(value)))
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return models.UnknownFloorArea
		}
		return boundFloorArea(int(math.Floor(f)))
	case int:
		return boundFloorArea(value)
	case string:
		return FloorArea(value)
	default:
		return models.UnknownFloorArea
	}
}

func boundFloorArea(sqm int) int {
	if sqm <= 0 || sqm >= 2000 {
		return models.UnknownFloorArea
	}
	return sqm
}
