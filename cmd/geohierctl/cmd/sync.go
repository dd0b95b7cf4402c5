package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

func newSyncCmd(o *rootOptions) *cobra.Command {
	var ev domain.VenueEvent
	cmd := &cobra.Command{
		Use:   "sync <event-id> <address>",
		Short: "Geocode an address and attach its hierarchy to an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev.EventID = domain.Sanitize(args[0])
			ev.Address = domain.Sanitize(args[1])
			ev.VenueName = domain.Sanitize(ev.VenueName)
			if ev.EventID == "" || ev.Address == "" {
				return fmt.Errorf("event id and address must not be empty")
			}

			a, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			located, err := a.locator.Locate(cmd.Context(), ev)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printRecord(w, located.Location)
			printField(w, "term_ids", fmt.Sprint(located.TermIDs))
			labelColor.Fprintf(w, "%-16s", "display")
			okColor.Fprintln(w, located.Display)
			return nil
		},
	}
	cmd.Flags().StringVar(&ev.VenueName, "venue", "", "venue name appended to the display string")
	cmd.Flags().StringVar(&ev.Language, "language", "", "geocoder language hint (defaults to GEOCODER_LANGUAGE)")
	return cmd
}
