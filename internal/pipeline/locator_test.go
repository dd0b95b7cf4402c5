package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
	"github.com/couchcryptid/event-geo-hierarchy/internal/pipeline"
	"github.com/couchcryptid/event-geo-hierarchy/internal/store/memory"
)

// --- fakes ---

type fakeGeocoder struct {
	mu        sync.Mutex
	addresses map[string]domain.RawAddress
	err       error
	calls     int
	languages []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address, language string) (domain.RawAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.languages = append(f.languages, language)
	if f.err != nil {
		return nil, f.err
	}
	return f.addresses[address], nil
}

func (f *fakeGeocoder) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

const (
	rathausAddress = "Marienplatz 1, 80331 München"
	prenzlAddress  = "Kastanienallee 7, Berlin"
)

func newGeocoder() *fakeGeocoder {
	return &fakeGeocoder{addresses: map[string]domain.RawAddress{
		rathausAddress: {
			"country_code": "de",
			"country":      "Deutschland",
			"state":        "Bayern",
			"city":         "München",
			"road":         "Marienplatz",
			"house_number": "1",
		},
		prenzlAddress: {
			"country_code":  "de",
			"country":       "Deutschland",
			"city":          "Berlin",
			"city_district": "Prenzlauer Berg",
			"road":          "Kastanienallee",
			"house_number":  "7",
		},
	}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocator(t *testing.T, geo domain.Geocoder, opts pipeline.LocatorOptions) (*pipeline.Locator, *memory.Store, *observability.Metrics) {
	t.Helper()
	store := memory.New(nil)
	metrics := observability.NewMetricsForTesting()
	return pipeline.NewLocator(geo, store, opts, metrics, discardLogger()), store, metrics
}

func rathausEvent() domain.VenueEvent {
	return domain.VenueEvent{EventID: "evt-1", VenueName: "Rathaus", Address: rathausAddress}
}

// --- tests ---

func TestLocator_Locate(t *testing.T) {
	loc, store, metrics := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})

	got, err := loc.Locate(context.Background(), rathausEvent())
	require.NoError(t, err)

	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "Europe", got.Location.Continent)
	assert.Equal(t, "de", got.Location.CountryCode)
	assert.Len(t, got.TermIDs, 6)
	assert.Equal(t, []string{"Europe > Deutschland > Bayern > München > Marienplatz > 1"}, got.Paths)
	assert.Equal(t, "Europe > Deutschland > Bayern > München > Marienplatz > 1 > Rathaus", got.Display)
	assert.False(t, got.ProcessedAt.IsZero())
	assert.Equal(t, 6, store.Len())
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.HierarchyLevels.WithLabelValues("created")), 0)
}

func TestLocator_DisplayMatchesLocate(t *testing.T) {
	loc, _, _ := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})
	ctx := context.Background()

	located, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	paths, display, err := loc.Display(ctx, "evt-1", 0, 0, "Rathaus")
	require.NoError(t, err)
	assert.Equal(t, located.Paths, paths)
	assert.Equal(t, located.Display, display)

	paths, display, err = loc.Display(ctx, "evt-1", domain.LevelCountry, domain.LevelCity, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Deutschland > Bayern > München"}, paths)
	assert.Equal(t, "Deutschland > Bayern > München", display)
}

func TestLocator_Display_UnknownEventShowsLabelOnly(t *testing.T) {
	loc, _, _ := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})

	paths, display, err := loc.Display(context.Background(), "nope", 0, 0, "Rathaus")
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, "Rathaus", display)
}

func TestLocator_Locate_Idempotent(t *testing.T) {
	loc, store, metrics := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})
	ctx := context.Background()

	first, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)
	second, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	assert.Equal(t, first.TermIDs, second.TermIDs)
	assert.Equal(t, first.Display, second.Display)
	assert.Equal(t, 6, store.Len())
	assert.InDelta(t, 6, testutil.ToFloat64(metrics.HierarchyLevels.WithLabelValues("reused")), 0)
}

func TestLocator_Locate_ReplacesAssociation(t *testing.T) {
	loc, store, _ := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})
	ctx := context.Background()

	_, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	moved := rathausEvent()
	moved.Address = prenzlAddress
	got, err := loc.Locate(ctx, moved)
	require.NoError(t, err)

	assert.Equal(t, "Berlin", got.Location.State)
	assert.Equal(t, "Prenzlauer Berg", got.Location.City)

	nodes, err := store.EventTerms(ctx, "evt-1")
	require.NoError(t, err)
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Europe", "Deutschland", "Berlin", "Prenzlauer Berg", "Kastanienallee", "7"}, names)
}

func TestLocator_Locate_NormalizationFailure(t *testing.T) {
	loc, store, metrics := newLocator(t, newGeocoder(), pipeline.LocatorOptions{})

	ev := rathausEvent()
	ev.Address = "nowhere at all"
	_, err := loc.Locate(context.Background(), ev)

	require.ErrorIs(t, err, domain.ErrNoAddress)
	assert.Contains(t, err.Error(), "evt-1")
	assert.Zero(t, store.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NormalizeFailures), 0)
}

func TestLocator_Locate_GeocoderDownKeepsAssociation(t *testing.T) {
	geo := newGeocoder()
	loc, _, _ := newLocator(t, geo, pipeline.LocatorOptions{})
	ctx := context.Background()

	before, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	geo.fail(errors.New("503 service unavailable"))
	after, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	assert.Equal(t, before.TermIDs, after.TermIDs)
	assert.Equal(t, before.Display, after.Display)
	assert.Empty(t, after.Location)
}

func TestLocator_Locate_LevelRange(t *testing.T) {
	loc, _, _ := newLocator(t, newGeocoder(), pipeline.LocatorOptions{
		Policy: domain.StaticRange{Min: domain.LevelCountry, Max: domain.LevelCity},
	})
	ctx := context.Background()

	got, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)
	assert.Len(t, got.TermIDs, 3)
	assert.Equal(t, []string{"Deutschland > Bayern > München"}, got.Paths)

	paths, _, err := loc.Display(ctx, "evt-1", domain.LevelContinent, domain.LevelCity, "")
	require.NoError(t, err)
	assert.Equal(t, got.Paths, paths, "levels that were never active contribute nothing")
}

func TestLocator_Locate_LanguageFallback(t *testing.T) {
	geo := newGeocoder()
	loc, _, _ := newLocator(t, geo, pipeline.LocatorOptions{Language: "de"})
	ctx := context.Background()

	_, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)

	ev := rathausEvent()
	ev.Language = "fr"
	_, err = loc.Locate(ctx, ev)
	require.NoError(t, err)

	assert.Equal(t, []string{"de", "fr"}, geo.languages)
}

func TestLocator_CustomSeparatorsAndHook(t *testing.T) {
	loc, store, _ := newLocator(t, newGeocoder(), pipeline.LocatorOptions{
		Hook:          domain.QualifiedSlugHook(domain.LevelStreet),
		Separator:     " / ",
		PathSeparator: " | ",
	})
	ctx := context.Background()

	got, err := loc.Locate(ctx, rathausEvent())
	require.NoError(t, err)
	assert.Equal(t, "Europe / Deutschland / Bayern / München / Marienplatz / 1 / Rathaus", got.Display)

	street, ok, err := store.FindBySlug(ctx, "munchen-marienplatz")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Marienplatz", street.Name)
}
