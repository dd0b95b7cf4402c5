package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

// Store is the persistence a Locator needs: hierarchy nodes plus the
// event-to-node association.
type Store interface {
	domain.TermStore
	domain.EventTermStore
}

// LocatorOptions tunes a Locator. Zero values select the defaults.
type LocatorOptions struct {
	Normalizer    *domain.Normalizer
	Hook          domain.TermArgsHook
	Policy        domain.LevelRangePolicy
	Separator     string
	PathSeparator string
	Format        domain.NodeFormatter
	// Language is the geocoder hint for events that carry none.
	Language string
}

// Locator classifies events: it geocodes the venue address, normalizes the
// result, synchronizes the hierarchy, replaces the event's association and
// renders the display string. Display re-renders from the stored association
// with the same Renderer, so both outputs match byte for byte.
type Locator struct {
	geocoder   domain.Geocoder
	normalizer *domain.Normalizer
	store      Store
	syncer     *domain.Synchronizer
	policy     domain.LevelRangePolicy
	renderer   domain.Renderer
	language   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewLocator wires a Locator over geocoder and store.
func NewLocator(geocoder domain.Geocoder, store Store, opts LocatorOptions, metrics *observability.Metrics, logger *slog.Logger) *Locator {
	if opts.Normalizer == nil {
		opts.Normalizer = domain.NewNormalizer()
	}
	if opts.Policy == nil {
		opts.Policy = domain.StaticRange(domain.DefaultLevelRange())
	}
	if opts.Separator == "" {
		opts.Separator = domain.DefaultSeparator
	}
	if opts.PathSeparator == "" {
		opts.PathSeparator = domain.DefaultPathSeparator
	}

	return &Locator{
		geocoder:   geocoder,
		normalizer: opts.Normalizer,
		store:      store,
		syncer:     domain.NewSynchronizer(store, opts.Hook, logger),
		policy:     opts.Policy,
		renderer: domain.Renderer{
			Separator:     opts.Separator,
			PathSeparator: opts.PathSeparator,
			Format:        opts.Format,
		},
		language: opts.Language,
		metrics:  metrics,
		logger:   logger,
	}
}

// Locate classifies ev. Only a normalization failure (domain.ErrNoAddress) is
// returned as an error. When the geocoder itself fails the event keeps its
// previous association and is rendered from it.
func (l *Locator) Locate(ctx context.Context, ev domain.VenueEvent) (domain.LocatedEvent, error) {
	rng := l.policy.LevelRange()
	out := domain.LocatedEvent{EventID: ev.EventID, VenueName: ev.VenueName}

	language := ev.Language
	if language == "" {
		language = l.language
	}

	raw, err := l.geocoder.Geocode(ctx, ev.Address, language)
	if err != nil {
		l.logger.Warn("geocoding failed, keeping previous association",
			"event_id", ev.EventID,
			"error", err,
		)
		nodes, err := l.store.EventTerms(ctx, ev.EventID)
		if err != nil {
			l.logger.Warn("load event terms failed", "event_id", ev.EventID, "error", err)
		}
		out.TermIDs = nodeIDs(nodes)
		out.Paths, out.Display = l.render(nodes, rng, rng.Min, rng.Max, ev.VenueName)
		return out.Stamp(), nil
	}

	record, err := l.normalizer.Normalize(raw)
	if err != nil {
		l.metrics.NormalizeFailures.Inc()
		return domain.LocatedEvent{}, fmt.Errorf("locate event %s: %w", ev.EventID, err)
	}

	ids, stats := l.syncer.Synchronize(ctx, record, rng)
	l.observeSync(stats)

	if err := l.store.ReplaceEventTerms(ctx, ev.EventID, ids); err != nil {
		l.logger.Warn("replace event terms failed",
			"event_id", ev.EventID,
			"term_count", len(ids),
			"error", err,
		)
	}

	nodes := l.nodes(ctx, ids)
	out.Location = record
	out.TermIDs = ids
	out.Paths, out.Display = l.render(nodes, rng, rng.Min, rng.Max, ev.VenueName)
	return out.Stamp(), nil
}

// Display renders the stored association of eventID for the window
// [start, end]. A zero bound falls back to the active level range.
func (l *Locator) Display(ctx context.Context, eventID string, start, end domain.Level, trailingLabel string) ([]string, string, error) {
	nodes, err := l.store.EventTerms(ctx, eventID)
	if err != nil {
		return nil, "", fmt.Errorf("display event %s: %w", eventID, err)
	}

	rng := l.policy.LevelRange()
	if start == 0 {
		start = rng.Min
	}
	if end == 0 {
		end = rng.Max
	}
	paths, display := l.render(nodes, rng, start, end, trailingLabel)
	return paths, display, nil
}

// Normalize exposes the configured normalizer for diagnostics.
func (l *Locator) Normalize(raw domain.RawAddress) (domain.LocationRecord, error) {
	return l.normalizer.Normalize(raw)
}

func (l *Locator) render(nodes []domain.Node, rng domain.LevelRange, start, end domain.Level, label string) ([]string, string) {
	r := l.renderer
	r.MinLevel = rng.Min
	return r.Render(nodes, start, end, label)
}

// nodes loads the chain in id order. Missing ids are dropped.
func (l *Locator) nodes(ctx context.Context, ids []domain.NodeID) []domain.Node {
	nodes := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		n, ok, err := l.store.GetByID(ctx, id)
		if err != nil {
			l.logger.Warn("load node failed", "node_id", id, "error", err)
			continue
		}
		if ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (l *Locator) observeSync(s domain.SyncStats) {
	l.metrics.HierarchyLevels.WithLabelValues("created").Add(float64(s.Created))
	l.metrics.HierarchyLevels.WithLabelValues("reused").Add(float64(s.Reused))
	l.metrics.HierarchyLevels.WithLabelValues("reparented").Add(float64(s.Reparented))
	l.metrics.HierarchyLevels.WithLabelValues("failed").Add(float64(s.Failed))
}

func nodeIDs(nodes []domain.Node) []domain.NodeID {
	if len(nodes) == 0 {
		return nil
	}
	ids := make([]domain.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
