package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake term store ---

type fakeStore struct {
	nodes   map[NodeID]Node
	bySlug  map[string]NodeID
	nextID  NodeID
	creates int
	updates int

	createErr map[string]error // forced Create failures by slug
	updateErr error
	findErr   error
	// racer simulates a concurrent writer committing the slug right before
	// our Create lands.
	racer map[string]Node
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:     make(map[NodeID]Node),
		bySlug:    make(map[string]NodeID),
		nextID:    100,
		createErr: make(map[string]error),
		racer:     make(map[string]Node),
	}
}

func (s *fakeStore) FindBySlug(_ context.Context, slug string) (Node, bool, error) {
	if s.findErr != nil {
		return Node{}, false, s.findErr
	}
	id, ok := s.bySlug[slug]
	if !ok {
		return Node{}, false, nil
	}
	return s.nodes[id], true, nil
}

func (s *fakeStore) Create(_ context.Context, name, slug string, parent NodeID, level Level) (NodeID, error) {
	if n, ok := s.racer[slug]; ok {
		delete(s.racer, slug)
		s.put(n)
		return 0, ErrSlugExists
	}
	if err := s.createErr[slug]; err != nil {
		return 0, err
	}
	if _, ok := s.bySlug[slug]; ok {
		return 0, ErrSlugExists
	}
	s.creates++
	s.nextID++
	s.put(Node{ID: s.nextID, Name: name, Slug: slug, ParentID: parent, Level: level})
	return s.nextID, nil
}

func (s *fakeStore) UpdateParent(_ context.Context, id, parent NodeID) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	n, ok := s.nodes[id]
	if !ok {
		return ErrNotFound
	}
	s.updates++
	n.ParentID = parent
	s.nodes[id] = n
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id NodeID) (Node, bool, error) {
	n, ok := s.nodes[id]
	return n, ok, nil
}

func (s *fakeStore) put(n Node) {
	s.nodes[n.ID] = n
	s.bySlug[n.Slug] = n.ID
}

func (s *fakeStore) collect(ids []NodeID) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.nodes[id])
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func munich() LocationRecord {
	return LocationRecord{
		Continent: "Europe", Country: "Germany", CountryCode: "de", State: "Bavaria",
		City: "Munich", Street: "Marienplatz", StreetNumber: "1",
	}
}

// --- tests ---

func TestSynchronize_BuildsParentChain(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), munich(), DefaultLevelRange())

	require.Len(t, ids, 6)
	assert.Equal(t, SyncStats{Created: 6}, stats)

	nodes := store.collect(ids)
	wantSlugs := []string{"europe", "de", "bavaria", "munich", "marienplatz", "1"}
	parent := RootID
	for i, n := range nodes {
		assert.Equal(t, wantSlugs[i], n.Slug)
		assert.Equal(t, parent, n.ParentID, "node %s", n.Slug)
		assert.Equal(t, Level(i+1), n.Level)
		parent = n.ID
	}
	assert.Equal(t, "Germany", nodes[1].Name)
}

func TestSynchronize_Idempotent(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())
	ctx := context.Background()

	first, _ := sync.Synchronize(ctx, munich(), DefaultLevelRange())
	second, stats := sync.Synchronize(ctx, munich(), DefaultLevelRange())

	assert.Equal(t, first, second)
	assert.Equal(t, SyncStats{Reused: 6}, stats)
	assert.Equal(t, 6, store.creates)
	assert.Zero(t, store.updates)
}

func TestSynchronize_EquivalentAddressesConverge(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())
	n := NewNormalizer()
	ctx := context.Background()

	a, err := n.Normalize(RawAddress{"road": "Marienplatz", "house_number": "1", "city": "Munich", "state": "Bavaria", "country": "Germany", "country_code": "de"})
	require.NoError(t, err)
	b, err := n.Normalize(RawAddress{"pedestrian": " Marienplatz ", "house_number": "1", "town": "Munich", "state": "Bavaria", "country": "Germany", "country_code": "DE", "suburb": "Altstadt"})
	require.NoError(t, err)

	first, _ := sync.Synchronize(ctx, a, DefaultLevelRange())
	second, _ := sync.Synchronize(ctx, b, DefaultLevelRange())

	assert.Equal(t, first, second)
	assert.Len(t, store.nodes, 6)
}

func TestSynchronize_RepairsParentDrift(t *testing.T) {
	store := newFakeStore()
	store.put(Node{ID: 7, Name: "Bavaria", Slug: "bavaria", ParentID: RootID, Level: LevelState})
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), munich(), DefaultLevelRange())

	require.Len(t, ids, 6)
	germany := ids[1]
	assert.Equal(t, NodeID(7), ids[2])
	assert.Equal(t, germany, store.nodes[7].ParentID)
	assert.Equal(t, 1, stats.Reparented)
	assert.Equal(t, 1, store.updates)

	count := 0
	for _, n := range store.nodes {
		if n.Slug == "bavaria" {
			count++
		}
	}
	assert.Equal(t, 1, count, "no duplicate bavaria node")
	assert.Equal(t, NodeID(7), store.nodes[ids[3]].ParentID, "city attaches to the repaired node")
}

func TestSynchronize_InactiveLevelsDoNotAdvanceParent(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, _ := sync.Synchronize(context.Background(), munich(), LevelRange{Min: LevelCountry, Max: LevelCity})

	require.Len(t, ids, 3)
	nodes := store.collect(ids)
	assert.Equal(t, "de", nodes[0].Slug)
	assert.Equal(t, RootID, nodes[0].ParentID, "first active level attaches to root")
	assert.Equal(t, nodes[0].ID, nodes[1].ParentID)
	assert.Equal(t, nodes[1].ID, nodes[2].ParentID)
	_, found, _ := store.FindBySlug(context.Background(), "europe")
	assert.False(t, found)
}

func TestSynchronize_EmptyFieldsAttachToNearestAncestor(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())

	rec := LocationRecord{Continent: "Europe", Country: "Germany", CountryCode: "de", City: "Munich"}
	ids, _ := sync.Synchronize(context.Background(), rec, DefaultLevelRange())

	require.Len(t, ids, 3)
	assert.Equal(t, ids[1], store.nodes[ids[2]].ParentID, "city hangs off country when state is empty")
}

func TestSynchronize_CountrySlugFallsBackToName(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())

	rec := LocationRecord{Continent: UnknownContinent, Country: "Österreich"}
	ids, _ := sync.Synchronize(context.Background(), rec, DefaultLevelRange())

	require.Len(t, ids, 2)
	assert.Equal(t, "osterreich", store.nodes[ids[1]].Slug)
}

func TestSynchronize_CreateFailureKeepsPrefix(t *testing.T) {
	store := newFakeStore()
	store.createErr["munich"] = errors.New("disk full")
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), munich(), DefaultLevelRange())

	require.Len(t, ids, 3)
	assert.Equal(t, 1, stats.Failed)
	_, found, _ := store.FindBySlug(context.Background(), "marienplatz")
	assert.False(t, found, "deeper levels are skipped after a failure")
}

func TestSynchronize_FindFailureSkipsEverything(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("connection reset")
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), munich(), DefaultLevelRange())

	assert.Empty(t, ids)
	assert.Equal(t, 1, stats.Failed)
}

func TestSynchronize_SlugConflictIsLateHit(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())
	ctx := context.Background()

	// Seed the upper levels so the racer can name the right parent.
	ids, _ := sync.Synchronize(ctx, LocationRecord{Continent: "Europe", Country: "Germany", CountryCode: "de", State: "Bavaria"}, DefaultLevelRange())
	require.Len(t, ids, 3)
	store.racer["munich"] = Node{ID: 55, Name: "Munich", Slug: "munich", ParentID: ids[2], Level: LevelCity}

	got, stats := sync.Synchronize(ctx, munich(), DefaultLevelRange())

	require.Len(t, got, 6)
	assert.Equal(t, NodeID(55), got[3])
	assert.Equal(t, NodeID(55), store.nodes[got[4]].ParentID)
	assert.Zero(t, stats.Failed)
}

func TestSynchronize_SlugConflictWithDriftedRacer(t *testing.T) {
	store := newFakeStore()
	store.racer["europe"] = Node{ID: 42, Name: "Europe", Slug: "europe", ParentID: 999, Level: LevelContinent}
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), LocationRecord{Continent: "Europe"}, DefaultLevelRange())

	assert.Equal(t, []NodeID{42}, ids)
	assert.Equal(t, RootID, store.nodes[42].ParentID)
	assert.Equal(t, 1, stats.Reparented)
}

func TestSynchronize_UpdateFailureReusesNode(t *testing.T) {
	store := newFakeStore()
	store.put(Node{ID: 7, Name: "Europe", Slug: "europe", ParentID: 3, Level: LevelContinent})
	store.updateErr = errors.New("read-only replica")
	sync := NewSynchronizer(store, nil, discardLogger())

	ids, stats := sync.Synchronize(context.Background(), LocationRecord{Continent: "Europe", Country: "Spain", CountryCode: "es"}, DefaultLevelRange())

	assert.Equal(t, NodeID(7), ids[0])
	require.Len(t, ids, 2)
	assert.Equal(t, 2, stats.Reused+stats.Created)
	assert.Equal(t, NodeID(3), store.nodes[7].ParentID)
}

func TestSynchronize_HookOverridesIdentity(t *testing.T) {
	store := newFakeStore()
	var seen []Level
	hook := func(args TermArgs, level Level, rec LocationRecord) TermArgs {
		seen = append(seen, level)
		assert.Equal(t, "Munich", rec.City)
		if level == LevelCity {
			args.Name = "München"
			args.Slug = "muenchen"
		}
		if level == LevelStreet {
			args.Parent = RootID
		}
		return args
	}
	sync := NewSynchronizer(store, hook, discardLogger())

	ids, _ := sync.Synchronize(context.Background(), munich(), LevelRange{Min: LevelState, Max: LevelStreet})

	assert.Equal(t, []Level{LevelState, LevelCity, LevelStreet}, seen, "hook runs only for active levels")
	require.Len(t, ids, 3)
	city := store.nodes[ids[1]]
	assert.Equal(t, "München", city.Name)
	assert.Equal(t, "muenchen", city.Slug)
	assert.Equal(t, RootID, store.nodes[ids[2]].ParentID)
}

func TestSynchronize_HookBlankSlugSkipsLevel(t *testing.T) {
	store := newFakeStore()
	hook := func(args TermArgs, level Level, _ LocationRecord) TermArgs {
		if level == LevelState {
			args.Slug = ""
		}
		return args
	}
	sync := NewSynchronizer(store, hook, discardLogger())

	ids, _ := sync.Synchronize(context.Background(), munich(), LevelRange{Min: LevelCountry, Max: LevelCity})

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], store.nodes[ids[1]].ParentID)
}

func TestSynchronize_SameSlugAsParentIsNotChained(t *testing.T) {
	store := newFakeStore()
	sync := NewSynchronizer(store, nil, discardLogger())

	rec := LocationRecord{Continent: "Asia", Country: "Singapore", CountryCode: "sg", State: "Singapore", City: "Singapore", Street: "Orchard Road"}
	ids, _ := sync.Synchronize(context.Background(), rec, DefaultLevelRange())

	require.Len(t, ids, 4)
	state := store.nodes[ids[2]]
	assert.Equal(t, "singapore", state.Slug)
	assert.Equal(t, state.ID, store.nodes[ids[3]].ParentID)
	assert.Zero(t, store.updates, "no self-parenting update")
}
