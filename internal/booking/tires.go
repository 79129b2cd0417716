// Package booking holds the booking form logic: tire size parsing, the tire
// price estimator, the tiered quote generator and the time window check.
package booking

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"valles-rodes/internal/models"
)

const (
	defaultRimBase = 85
	minTirePrice   = 45
	minEconomy     = 39
	referenceWidth = 185
	widthFactor    = 0.3
)

var (
	tireSizePattern = regexp.MustCompile(`(\d{3})/(\d{2})R(\d{2})`)

	rimBasePrice = map[int]int{14: 55, 15: 65, 16: 75, 17: 90, 18: 110, 19: 130, 20: 160}
)

// ParseTireSize reads a designation like "205/55 R16". The text is upper-cased
// and stripped of all whitespace, then the pattern may match anywhere in it.
func ParseTireSize(s string) (models.TireSize, bool) {
	if s == "" {
		return models.TireSize{}, false
	}

	compact := compactUpper(s)
	m := tireSizePattern.FindStringSubmatch(compact)
	if m == nil {
		return models.TireSize{}, false
	}

	width, _ := strconv.Atoi(m[1])
	aspect, _ := strconv.Atoi(m[2])
	rim, _ := strconv.Atoi(m[3])
	return models.TireSize{Width: width, Aspect: aspect, Rim: rim}, true
}

// compactUpper upper-cases s and drops every Unicode space, plus the BOM that
// pasted text sometimes carries.
func compactUpper(s string) string {
	s = strings.ReplaceAll(strings.ToUpper(s), "\ufeff", "")
	return strings.Join(strings.Fields(s), "")
}

// FormatTireSize renders a size the way the quote panel labels it.
func FormatTireSize(size models.TireSize) string {
	return fmt.Sprintf("%d/%d R%d", size.Width, size.Aspect, size.Rim)
}

// PriceFromSize estimates the optimal-tier price of one tire.
func PriceFromSize(size models.TireSize) int {
	base, ok := rimBasePrice[size.Rim]
	if !ok {
		base = defaultRimBase
	}
	adj := float64(size.Width-referenceWidth) * widthFactor

	// half rounds toward +Inf, like the quote sheet always did
	price := int(math.Floor(float64(base) + adj + 0.5))
	if price < minTirePrice {
		return minTirePrice
	}
	return price
}

// QuoteOptions derives the three tiers from a parsed size.
func QuoteOptions(size models.TireSize) []models.TireOption {
	base := PriceFromSize(size)
	return []models.TireOption{
		{Tier: models.TierPremium, Price: base + 40, ETA: "24–48 h", Notes: "Prestaciones y durabilidad"},
		{Tier: models.TierOptimal, Price: base, ETA: "24 h", Notes: "Mejor calidad-precio"},
		{Tier: models.TierEconomy, Price: max(minEconomy, base-20), ETA: "48–72 h", Notes: "Ahorro"},
	}
}

// TireOptions returns the quote for a tire change, or nil when the service is
// something else or the size text does not parse.
func TireOptions(service, sizeText string) []models.TireOption {
	if service != models.ServiceTires {
		return nil
	}
	size, ok := ParseTireSize(sizeText)
	if !ok {
		return nil
	}
	return QuoteOptions(size)
}

// TierLabel is the customer-facing name of a tier.
func TierLabel(tier string) string {
	switch tier {
	case models.TierPremium:
		return "Alta gama"
	case models.TierOptimal:
		return "Óptimo"
	case models.TierEconomy:
		return "Económico"
	default:
		return tier
	}
}
