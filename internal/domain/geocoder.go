package domain

import "context"

// Geocoder resolves free-text addresses into structured address components.
type Geocoder interface {
	// Geocode returns the best match for address, with component names in
	// the given language when the source supports it. No match yields an
	// empty RawAddress and a nil error.
	Geocode(ctx context.Context, address, language string) (RawAddress, error)
}
