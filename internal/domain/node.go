package domain

import (
	"context"
	"time"
)

// NodeID is a store-assigned node identifier. RootID marks "no parent".
type NodeID int64

const RootID NodeID = 0

// Node is a persisted hierarchy entry.
type Node struct {
	ID        NodeID    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  NodeID    `json:"parent_id"`
	Level     Level     `json:"level"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// TermStore persists hierarchy nodes. Slug uniqueness is authoritative: a
// Create that collides must fail with ErrSlugExists.
type TermStore interface {
	FindBySlug(ctx context.Context, slug string) (Node, bool, error)
	Create(ctx context.Context, name, slug string, parent NodeID, level Level) (NodeID, error)
	UpdateParent(ctx context.Context, id, parent NodeID) error
	GetByID(ctx context.Context, id NodeID) (Node, bool, error)
}

// EventTermStore associates events with hierarchy nodes.
type EventTermStore interface {
	// ReplaceEventTerms sets the complete association for an event,
	// dropping whatever was associated before.
	ReplaceEventTerms(ctx context.Context, eventID string, ids []NodeID) error

	// EventTerms returns the nodes associated with an event. Order is not
	// significant to path resolution.
	EventTerms(ctx context.Context, eventID string) ([]Node, error)
}
