package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// RawAddress is the structured address map returned by a geocoding source,
// keyed by component name (Nominatim naming: "road", "house_number", "city",
// "state", "country_code", ...). Keys vary by country and by data quality.
type RawAddress map[string]string

// Nominatim address component keys consulted during normalization.
const (
	KeyCountryCode  = "country_code"
	KeyCountry      = "country"
	KeyState        = "state"
	KeyRegion       = "region"
	KeyProvince     = "province"
	KeyCity         = "city"
	KeyTown         = "town"
	KeyVillage      = "village"
	KeyCounty       = "county"
	KeyCityDistrict = "city_district"
	KeySuburb       = "suburb"
	KeyBorough      = "borough"
	KeyRoad         = "road"
	KeyStreet       = "street"
	KeyPedestrian   = "pedestrian"
	KeyHouseNumber  = "house_number"
)

// Get returns the sanitized value stored under key, or "".
func (a RawAddress) Get(key string) string {
	return Sanitize(a[key])
}

// hasComponents reports whether any key carries a non-blank value.
func (a RawAddress) hasComponents() bool {
	for _, v := range a {
		if Sanitize(v) != "" {
			return true
		}
	}
	return false
}

// FallbackChain is an ordered list of candidate component keys consulted in
// priority order.
type FallbackChain []string

// Resolve returns the first non-empty sanitized value along the chain.
func (c FallbackChain) Resolve(a RawAddress) string {
	for _, key := range c {
		if v := a.Get(key); v != "" {
			return v
		}
	}
	return ""
}

var (
	markupRe = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Sanitize strips markup and control characters, collapses whitespace and trims.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = markupRe.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
