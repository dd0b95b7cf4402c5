package domain

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// UnknownContinent is the continent assigned to absent or unmapped country codes.
const UnknownContinent = "Unknown"

//go:embed continents.yaml
var embeddedContinents []byte

// ContinentTable maps lowercase ISO-3166 alpha-2 codes to continent names.
type ContinentTable struct {
	byCode  map[string]string
	unknown string
}

// continentFile is the on-disk layout: continent name -> member country codes.
type continentFile struct {
	Unknown    string              `yaml:"unknown"`
	Continents map[string][]string `yaml:"continents"`
}

// ParseContinentTable reads a YAML continent table.
func ParseContinentTable(r io.Reader) (ContinentTable, error) {
	var f continentFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return ContinentTable{}, fmt.Errorf("decode continent table: %w", err)
	}
	if len(f.Continents) == 0 {
		return ContinentTable{}, fmt.Errorf("continent table has no continents")
	}

	t := ContinentTable{byCode: make(map[string]string), unknown: f.Unknown}
	if t.unknown == "" {
		t.unknown = UnknownContinent
	}
	for continent, codes := range f.Continents {
		for _, code := range codes {
			code = strings.ToLower(strings.TrimSpace(code))
			if prev, dup := t.byCode[code]; dup && prev != continent {
				return ContinentTable{}, fmt.Errorf("country %q listed under both %s and %s", code, prev, continent)
			}
			t.byCode[code] = continent
		}
	}
	return t, nil
}

// LoadContinentTable reads a YAML continent table from path.
func LoadContinentTable(path string) (ContinentTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContinentTable{}, fmt.Errorf("open continent table: %w", err)
	}
	defer f.Close()
	return ParseContinentTable(f)
}

var defaultContinents = sync.OnceValue(func() ContinentTable {
	t, err := ParseContinentTable(strings.NewReader(string(embeddedContinents)))
	if err != nil {
		panic(fmt.Sprintf("embedded continent table: %v", err))
	}
	return t
})

// DefaultContinentTable returns the table bundled with the binary.
func DefaultContinentTable() ContinentTable {
	return defaultContinents()
}

// Lookup returns the continent for code, or the unknown marker.
func (t ContinentTable) Lookup(code string) string {
	if c, ok := t.byCode[strings.ToLower(code)]; ok && code != "" {
		return c
	}
	if t.unknown == "" {
		return UnknownContinent
	}
	return t.unknown
}

// Len reports how many countries the table maps.
func (t ContinentTable) Len() int { return len(t.byCode) }
