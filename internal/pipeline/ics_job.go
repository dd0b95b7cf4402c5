package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

// FeedFetcher loads the venue events of one calendar feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.VenueEvent, error)
}

// ImportResult summarizes one feed import.
type ImportResult struct {
	Feed    string
	Fetched int
	Failed  int
	Events  []domain.LocatedEvent
}

// FeedImporter locates every event of a calendar feed and optionally
// forwards the results to a BatchLoader.
type FeedImporter struct {
	fetcher FeedFetcher
	locator *Locator
	loader  BatchLoader
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFeedImporter creates a FeedImporter. loader may be nil.
func NewFeedImporter(fetcher FeedFetcher, locator *Locator, loader BatchLoader, metrics *observability.Metrics, logger *slog.Logger) *FeedImporter {
	return &FeedImporter{
		fetcher: fetcher,
		locator: locator,
		loader:  loader,
		metrics: metrics,
		logger:  logger,
	}
}

// Import fetches feedURL and locates its events one by one. progress, if
// non-nil, is called after each event. Events that fail normalization are
// counted and skipped.
func (f *FeedImporter) Import(ctx context.Context, feedURL string, progress func(done, total int)) (ImportResult, error) {
	events, err := f.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Feed: feedURL, Fetched: len(events)}
	label := feedLabel(feedURL)

	for i, ev := range events {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		located, err := f.locator.Locate(ctx, ev)
		if err != nil {
			res.Failed++
			f.logger.Warn("calendar event not located", "event_id", ev.EventID, "feed", label, "error", err)
		} else {
			res.Events = append(res.Events, located)
			f.metrics.ICSEventsImported.WithLabelValues(label).Inc()
		}
		if progress != nil {
			progress(i+1, len(events))
		}
	}

	if f.loader != nil && len(res.Events) > 0 {
		if err := f.loader.LoadBatch(ctx, res.Events); err != nil {
			return res, fmt.Errorf("load feed %s: %w", label, err)
		}
		f.metrics.MessagesProduced.Add(float64(len(res.Events)))
	}
	return res, nil
}

// Refresh imports every feed in turn, logging failures instead of stopping.
func (f *FeedImporter) Refresh(ctx context.Context, feeds []string) {
	for _, feed := range feeds {
		res, err := f.Import(ctx, feed, nil)
		if err != nil {
			f.logger.Error("feed refresh failed", "feed", feedLabel(feed), "error", err)
			continue
		}
		f.logger.Info("feed refreshed",
			"feed", feedLabel(feed),
			"fetched", res.Fetched,
			"located", len(res.Events),
			"failed", res.Failed,
		)
	}
}

// ScheduleRefresh registers a Refresh of feeds on the standard five-field
// cron spec. The caller starts and stops the returned scheduler.
func ScheduleRefresh(ctx context.Context, spec string, importer *FeedImporter, feeds []string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { importer.Refresh(ctx, feeds) }); err != nil {
		return nil, fmt.Errorf("schedule feed refresh %q: %w", spec, err)
	}
	return c, nil
}

// feedLabel reduces a feed URL to its host for logs and metric labels;
// query strings may carry access tokens. Local files are labeled "local".
func feedLabel(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "invalid"
	}
	if u.Host == "" {
		return "local"
	}
	return u.Host
}
