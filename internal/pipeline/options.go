package pipeline

import (
	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// OptionsFromConfig builds LocatorOptions from service configuration,
// loading the continent table override if one is configured.
func OptionsFromConfig(cfg *config.Config) (LocatorOptions, error) {
	var nopts []domain.NormalizerOption
	if cfg.ContinentTablePath != "" {
		table, err := domain.LoadContinentTable(cfg.ContinentTablePath)
		if err != nil {
			return LocatorOptions{}, err
		}
		nopts = append(nopts, domain.WithContinentTable(table))
	}
	if cfg.CollapsedRegions != nil {
		nopts = append(nopts, domain.WithCollapsedRegions(cfg.CollapsedRegions...))
	}

	var hook domain.TermArgsHook
	if cfg.QualifySlugsFrom > 0 {
		hook = domain.QualifiedSlugHook(cfg.QualifySlugsFrom)
	}

	rng := cfg.LevelRange
	if rng == (domain.LevelRange{}) {
		rng = domain.DefaultLevelRange()
	}

	return LocatorOptions{
		Normalizer:    domain.NewNormalizer(nopts...),
		Hook:          hook,
		Policy:        domain.StaticRange(rng),
		Separator:     cfg.DisplaySeparator,
		PathSeparator: cfg.DisplayPathSeparator,
		Language:      cfg.GeocoderLanguage,
	}, nil
}
