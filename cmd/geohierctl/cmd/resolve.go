package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

func newResolveCmd(o *rootOptions) *cobra.Command {
	var (
		start, end int
		label      string
	)
	cmd := &cobra.Command{
		Use:   "resolve <event-id>",
		Short: "Render the stored hierarchy of an event",
		Long: `Prints one line per leaf path for the level window [--start, --end],
followed by the display string. A zero bound uses the configured level range.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range []int{start, end} {
				if l != 0 && !domain.Level(l).Valid() {
					return fmt.Errorf("level %d: must be between 1 and 6", l)
				}
			}

			a, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			paths, display, err := a.locator.Display(cmd.Context(), args[0], domain.Level(start), domain.Level(end), domain.Sanitize(label))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(paths) == 0 {
				warnColor.Fprintln(w, "no hierarchy for", args[0])
			}
			for _, p := range paths {
				fmt.Fprintln(w, p)
			}
			if display != "" {
				okColor.Fprintln(w, display)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "first level to display (1-6)")
	cmd.Flags().IntVar(&end, "end", 0, "last level to display (1-6)")
	cmd.Flags().StringVar(&label, "label", "", "trailing label, usually the venue name")
	return cmd
}
