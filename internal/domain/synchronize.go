package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SyncStats counts what happened to each level during one synchronization.
type SyncStats struct {
	Created    int
	Reused     int
	Reparented int
	Failed     int
}

type syncOutcome int

const (
	outcomeReused syncOutcome = iota
	outcomeCreated
	outcomeReparented
)

func (s *SyncStats) add(o syncOutcome) {
	switch o {
	case outcomeCreated:
		s.Created++
	case outcomeReparented:
		s.Reparented++
	default:
		s.Reused++
	}
}

// Synchronizer materializes LocationRecords as parent-linked nodes in a
// TermStore. It holds no state between calls; re-running it on the same
// record converges on the same node chain.
type Synchronizer struct {
	store  TermStore
	hook   TermArgsHook
	logger *slog.Logger
}

// NewSynchronizer creates a Synchronizer. hook may be nil.
func NewSynchronizer(store TermStore, hook TermArgsHook, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{store: store, hook: hook, logger: logger}
}

// Synchronize walks levels 1..6 in order and returns the ids of the nodes
// backing every active, non-empty level, root first. Inactive and empty
// levels are skipped without advancing the parent, so the next active level
// attaches to the nearest created ancestor. A store failure ends the chain:
// the returned prefix stays valid.
func (s *Synchronizer) Synchronize(ctx context.Context, record LocationRecord, rng LevelRange) ([]NodeID, SyncStats) {
	var (
		ids    []NodeID
		stats  SyncStats
		parent = RootID
	)

	for level := MinLevel; level <= MaxLevel; level++ {
		value := record.Field(level)
		if value == "" || !rng.Contains(level) {
			continue
		}

		args := TermArgs{Name: value, Slug: Slugify(value), Parent: parent}
		if level == LevelCountry && record.CountryCode != "" {
			args.Slug = record.CountryCode
		}
		if s.hook != nil {
			args = s.hook(args, level, record)
		}
		if args.Name == "" || args.Slug == "" {
			s.logger.Debug("hierarchy level has no usable identity", "level", level, "name", args.Name)
			continue
		}

		node, outcome, err := s.ensureNode(ctx, args, level)
		if err != nil {
			stats.Failed++
			s.logger.Warn("hierarchy level skipped",
				"level", level,
				"slug", args.Slug,
				"parent", args.Parent,
				"error", err,
			)
			break
		}
		if node.ID == args.Parent {
			// Same slug as the level above; the ancestor already covers it.
			continue
		}

		stats.add(outcome)
		parent = node.ID
		ids = append(ids, node.ID)
	}

	return ids, stats
}

// ensureNode finds or creates the node for args, repairing parent drift.
func (s *Synchronizer) ensureNode(ctx context.Context, args TermArgs, level Level) (Node, syncOutcome, error) {
	node, found, err := s.store.FindBySlug(ctx, args.Slug)
	if err != nil {
		return Node{}, 0, fmt.Errorf("find by slug: %w", err)
	}
	if found {
		return s.reconcile(ctx, node, args.Parent)
	}

	id, err := s.store.Create(ctx, args.Name, args.Slug, args.Parent, level)
	if err == nil {
		return Node{ID: id, Name: args.Name, Slug: args.Slug, ParentID: args.Parent, Level: level}, outcomeCreated, nil
	}
	if !errors.Is(err, ErrSlugExists) {
		return Node{}, 0, fmt.Errorf("create: %w", err)
	}

	// A concurrent writer committed the slug between our find and create.
	node, found, ferr := s.store.FindBySlug(ctx, args.Slug)
	if ferr != nil {
		return Node{}, 0, fmt.Errorf("find by slug after conflict: %w", ferr)
	}
	if !found {
		return Node{}, 0, fmt.Errorf("create: %w", err)
	}
	return s.reconcile(ctx, node, args.Parent)
}

// reconcile reuses an existing node, moving it under parent if it drifted.
// An update failure is logged and the node is reused as-is.
func (s *Synchronizer) reconcile(ctx context.Context, node Node, parent NodeID) (Node, syncOutcome, error) {
	if node.ParentID == parent || node.ID == parent {
		return node, outcomeReused, nil
	}

	if err := s.store.UpdateParent(ctx, node.ID, parent); err != nil {
		s.logger.Warn("hierarchy parent repair failed",
			"node_id", node.ID,
			"slug", node.Slug,
			"from_parent", node.ParentID,
			"to_parent", parent,
			"error", err,
		)
		return node, outcomeReused, nil
	}

	s.logger.Debug("hierarchy parent repaired",
		"node_id", node.ID,
		"slug", node.Slug,
		"from_parent", node.ParentID,
		"to_parent", parent,
	)
	node.ParentID = parent
	return node, outcomeReparented, nil
}
