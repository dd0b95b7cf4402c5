package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/event-geo-hierarchy/internal/adapter/ics"
	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/pipeline"
)

func newImportICSCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ics <url-or-file>...",
		Short: "Locate every event of one or more iCalendar feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			fetcher := feedSource{http: ics.NewFetcher(a.cfg.GeocoderTimeout, a.logger), logger: a.logger}
			importer := pipeline.NewFeedImporter(fetcher, a.locator, nil, a.metrics, a.logger)

			w := cmd.OutOrStdout()
			var failed int
			for _, feed := range args {
				var bar *progressbar.ProgressBar
				res, err := importer.Import(cmd.Context(), feed, func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetWriter(cmd.ErrOrStderr()),
							progressbar.OptionSetDescription("locating events"),
							progressbar.OptionSetWidth(40),
							progressbar.OptionShowCount(),
							progressbar.OptionThrottle(100*time.Millisecond),
							progressbar.OptionClearOnFinish(),
						)
					}
					bar.Set(done) //nolint:errcheck // progress output only
				})
				if bar != nil {
					bar.Finish() //nolint:errcheck // progress output only
				}
				if err != nil {
					errColor.Fprintf(w, "%s: %v\n", feed, err)
					failed++
					continue
				}

				labelColor.Fprintf(w, "%s ", feed)
				okColor.Fprintf(w, "%d located", len(res.Events))
				if res.Failed > 0 {
					warnColor.Fprintf(w, ", %d without address", res.Failed)
				}
				fmt.Fprintf(w, " (%d fetched)\n", res.Fetched)
				for _, ev := range res.Events {
					fmt.Fprintf(w, "  %s  %s\n", ev.EventID, ev.Display)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d feeds failed", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

// feedSource fetches http(s) feeds over the network and reads anything else
// from the local filesystem.
type feedSource struct {
	http   *ics.Fetcher
	logger *slog.Logger
}

func (f feedSource) Fetch(ctx context.Context, feed string) ([]domain.VenueEvent, error) {
	if strings.HasPrefix(feed, "http://") || strings.HasPrefix(feed, "https://") {
		return f.http.Fetch(ctx, feed)
	}
	body, err := os.ReadFile(feed)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return ics.Parse(body, f.logger)
}
