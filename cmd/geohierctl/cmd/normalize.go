package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

func newNormalizeCmd(o *rootOptions) *cobra.Command {
	var (
		geocode  string
		language string
	)
	cmd := &cobra.Command{
		Use:   "normalize [key=value ...]",
		Short: "Normalize address components into the six hierarchy levels",
		Long: `Reads Nominatim address components (country_code=de city=Berlin ...) from the
arguments, or a JSON object from stdin when no arguments are given. With
--geocode the components come from the configured geocoder instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.configure(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var raw domain.RawAddress
			switch {
			case geocode != "":
				if language == "" {
					language = a.cfg.GeocoderLanguage
				}
				raw, err = a.geocoder().Geocode(cmd.Context(), geocode, language)
			case len(args) > 0:
				raw, err = parseComponents(args)
			default:
				raw, err = readComponents(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			rec, err := a.opts.Normalizer.Normalize(raw)
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&geocode, "geocode", "", "free-text address to geocode first")
	cmd.Flags().StringVar(&language, "language", "", "geocoder language hint (defaults to GEOCODER_LANGUAGE)")
	return cmd
}

func parseComponents(args []string) (domain.RawAddress, error) {
	raw := make(domain.RawAddress, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("component %q: want key=value", arg)
		}
		raw[strings.TrimSpace(k)] = v
	}
	return raw, nil
}

func readComponents(r io.Reader) (domain.RawAddress, error) {
	var raw domain.RawAddress
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("read address components: %w", err)
	}
	return raw, nil
}

func printRecord(w io.Writer, rec domain.LocationRecord) {
	for l := domain.MinLevel; l <= domain.MaxLevel; l++ {
		printField(w, fmt.Sprintf("%d %s", l, l), rec.Field(l))
	}
	printField(w, "country_code", rec.CountryCode)
}
