package pipeline

import (
	"context"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// LocatingTransformer implements Transformer by decoding the venue event and
// running it through a Locator.
type LocatingTransformer struct {
	locator *Locator
}

// NewTransformer creates a LocatingTransformer.
func NewTransformer(locator *Locator) *LocatingTransformer {
	return &LocatingTransformer{locator: locator}
}

func (t *LocatingTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.LocatedEvent, error) {
	event, err := domain.ParseVenueEvent(raw)
	if err != nil {
		return domain.LocatedEvent{}, err
	}
	return t.locator.Locate(ctx, event)
}
