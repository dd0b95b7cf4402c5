package domain

import "errors"

var (
	// ErrNoAddress is returned by normalization when the geocoder result carries
	// no address components at all.
	ErrNoAddress = errors.New("no address components")

	// ErrSlugExists is returned by a TermStore when a create collides with an
	// existing slug. The synchronizer treats it as a late cache hit.
	ErrSlugExists = errors.New("slug already exists")

	// ErrNotFound is returned by stores for unknown node ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidLevelRange rejects ranges outside 1 <= min <= max <= 6.
	ErrInvalidLevelRange = errors.New("invalid level range")
)
