package domain

import "strings"

// DefaultCollapsedRegions lists the countries whose first-level subdivisions
// include city-states (Berlin, Hamburg, Bremen, Vienna, Basel-Stadt, Brussels).
// Override with WithCollapsedRegions.
var DefaultCollapsedRegions = []string{"de", "at", "ch", "be"}

var (
	stateChain     = FallbackChain{KeyState, KeyRegion, KeyProvince}
	cityChain      = FallbackChain{KeyCity, KeyTown, KeyVillage, KeyCounty}
	cityStateChain = FallbackChain{KeyCity, KeyTown, KeyVillage}
	districtChain  = FallbackChain{KeyCityDistrict, KeySuburb, KeyBorough}
	streetChain    = FallbackChain{KeyRoad, KeyStreet, KeyPedestrian}
)

// Normalizer converts raw geocoder address maps into LocationRecords.
// It is stateless after construction and safe for concurrent use.
type Normalizer struct {
	continents ContinentTable
	collapsed  map[string]struct{}
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithContinentTable replaces the embedded country->continent table.
func WithContinentTable(t ContinentTable) NormalizerOption {
	return func(n *Normalizer) { n.continents = t }
}

// WithCollapsedRegions sets the countries that get the city-state treatment.
// Passing no codes disables the region branch entirely.
func WithCollapsedRegions(codes ...string) NormalizerOption {
	return func(n *Normalizer) {
		n.collapsed = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				n.collapsed[c] = struct{}{}
			}
		}
	}
}

// NewNormalizer builds a Normalizer with the embedded continent table and
// DefaultCollapsedRegions unless overridden.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{continents: DefaultContinentTable()}
	WithCollapsedRegions(DefaultCollapsedRegions...)(n)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps raw address components onto the six hierarchy levels.
// It fails only when raw has no components at all; missing individual
// components leave the matching fields empty.
func (n *Normalizer) Normalize(raw RawAddress) (LocationRecord, error) {
	if !raw.hasComponents() {
		return LocationRecord{}, ErrNoAddress
	}

	code := strings.ToLower(raw.Get(KeyCountryCode))
	rec := LocationRecord{
		Continent:    n.continents.Lookup(code),
		Country:      raw.Get(KeyCountry),
		CountryCode:  code,
		Street:       streetChain.Resolve(raw),
		StreetNumber: raw.Get(KeyHouseNumber),
	}

	if _, ok := n.collapsed[code]; ok && code != "" {
		rec.State, rec.City = collapsedRegion(raw)
	} else {
		rec.State = stateChain.Resolve(raw)
		rec.City = cityChain.Resolve(raw)
	}
	return rec, nil
}

// collapsedRegion handles countries with city-states. Without a state the
// administrative city is promoted to the state level and a finer district
// takes the city level, so adjacent levels never carry the same name.
func collapsedRegion(raw RawAddress) (state, city string) {
	if state = raw.Get(KeyState); state != "" {
		return state, cityChain.Resolve(raw)
	}
	return cityStateChain.Resolve(raw), districtChain.Resolve(raw)
}

// IsCollapsedRegion reports whether code receives the city-state treatment.
func (n *Normalizer) IsCollapsedRegion(code string) bool {
	_, ok := n.collapsed[strings.ToLower(code)]
	return ok
}
