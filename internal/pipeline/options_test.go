package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/pipeline"
)

func TestOptionsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "continents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("continents:\n  Mitteleuropa: [de, at]\n"), 0o600))

	opts, err := pipeline.OptionsFromConfig(&config.Config{
		ContinentTablePath: path,
		CollapsedRegions:   []string{},
		QualifySlugsFrom:   domain.LevelStreet,
		LevelRange:         domain.LevelRange{Min: domain.LevelCountry, Max: domain.LevelStreet},
		DisplaySeparator:   " / ",
		GeocoderLanguage:   "de",
	})
	require.NoError(t, err)

	rec, err := opts.Normalizer.Normalize(domain.RawAddress{"country_code": "de", "city": "Berlin", "city_district": "Mitte"})
	require.NoError(t, err)
	assert.Equal(t, "Mitteleuropa", rec.Continent)
	assert.Empty(t, rec.State, "region branch disabled")
	assert.Equal(t, "Berlin", rec.City)

	assert.NotNil(t, opts.Hook)
	assert.Equal(t, domain.LevelRange{Min: domain.LevelCountry, Max: domain.LevelStreet}, opts.Policy.LevelRange())
	assert.Equal(t, " / ", opts.Separator)
	assert.Equal(t, "de", opts.Language)
}

func TestOptionsFromConfig_Defaults(t *testing.T) {
	opts, err := pipeline.OptionsFromConfig(&config.Config{})
	require.NoError(t, err)

	assert.Nil(t, opts.Hook)
	assert.Equal(t, domain.DefaultLevelRange(), opts.Policy.LevelRange())
	assert.True(t, opts.Normalizer.IsCollapsedRegion("at"))
}

func TestOptionsFromConfig_BadContinentTable(t *testing.T) {
	_, err := pipeline.OptionsFromConfig(&config.Config{ContinentTablePath: "/nonexistent.yaml"})
	assert.Error(t, err)
}
