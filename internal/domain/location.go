package domain

import (
	"fmt"
	"strconv"
)

// Level is a rank in the geographic hierarchy, 1 (continent) through 6 (street number).
type Level int

const (
	LevelContinent Level = iota + 1
	LevelCountry
	LevelState
	LevelCity
	LevelStreet
	LevelStreetNumber
)

// MinLevel and MaxLevel bound every valid Level.
const (
	MinLevel = LevelContinent
	MaxLevel = LevelStreetNumber
)

var levelNames = [...]string{"", "continent", "country", "state", "city", "street", "street_number"}

func (l Level) String() string {
	if !l.Valid() {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// Valid reports whether l lies in [MinLevel, MaxLevel].
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// LocationRecord is the canonical six-level decomposition of a geocoded address.
// An empty field means the level is absent and no node is created for it.
type LocationRecord struct {
	Continent    string `json:"continent,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"` // lowercase ISO-3166 alpha-2
	State        string `json:"state,omitempty"`
	City         string `json:"city,omitempty"`
	Street       string `json:"street,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
}

// Field returns the record value backing the given level.
func (r LocationRecord) Field(l Level) string {
	switch l {
	case LevelContinent:
		return r.Continent
	case LevelCountry:
		return r.Country
	case LevelState:
		return r.State
	case LevelCity:
		return r.City
	case LevelStreet:
		return r.Street
	case LevelStreetNumber:
		return r.StreetNumber
	default:
		return ""
	}
}

// LevelRange is the inclusive window of levels active for creation and display.
type LevelRange struct {
	Min Level `json:"min"`
	Max Level `json:"max"`
}

// DefaultLevelRange activates every level.
func DefaultLevelRange() LevelRange {
	return LevelRange{Min: MinLevel, Max: MaxLevel}
}

// NewLevelRange builds a validated range from plain integers.
func NewLevelRange(minLevel, maxLevel int) (LevelRange, error) {
	r := LevelRange{Min: Level(minLevel), Max: Level(maxLevel)}
	if err := r.Validate(); err != nil {
		return LevelRange{}, err
	}
	return r, nil
}

// Validate enforces 1 <= Min <= Max <= 6.
func (r LevelRange) Validate() error {
	if !r.Min.Valid() || !r.Max.Valid() || r.Min > r.Max {
		return fmt.Errorf("%w: (%d,%d)", ErrInvalidLevelRange, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether l is active under r.
func (r LevelRange) Contains(l Level) bool {
	return r.Min <= l && l <= r.Max
}

// LevelRangePolicy supplies the currently active level window.
type LevelRangePolicy interface {
	LevelRange() LevelRange
}

// StaticRange is a LevelRangePolicy that never changes.
type StaticRange LevelRange

func (s StaticRange) LevelRange() LevelRange { return LevelRange(s) }
