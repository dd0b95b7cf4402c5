package domain

import "strings"

// TermArgs is the identity a level will be persisted under.
type TermArgs struct {
	Name   string
	Slug   string
	Parent NodeID
}

// TermArgsHook may rewrite the derived name, slug and parent of a level
// before it is looked up or created. It is called once per active,
// non-empty level and never for skipped ones.
type TermArgsHook func(args TermArgs, level Level, record LocationRecord) TermArgs

// ChainHooks composes hooks in registration order. Nil hooks are ignored.
func ChainHooks(hooks ...TermArgsHook) TermArgsHook {
	active := make([]TermArgsHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			active = append(active, h)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(args TermArgs, level Level, record LocationRecord) TermArgs {
		for _, h := range active {
			args = h(args, level, record)
		}
		return args
	}
}

// QualifiedSlugHook prefixes the slug of every level >= from with the slugs
// of the record fields from level from-1 down to the level's parent. With
// from=LevelStreet, "Hauptstraße" in two cities stays two nodes
// ("bonn-hauptstrasse", "koln-hauptstrasse"). Country-level and coarser
// slugs are never touched.
func QualifiedSlugHook(from Level) TermArgsHook {
	if from < LevelState {
		from = LevelState
	}
	return func(args TermArgs, level Level, record LocationRecord) TermArgs {
		if level < from {
			return args
		}
		var parts []string
		for l := from - 1; l < level; l++ {
			if s := Slugify(record.Field(l)); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 && args.Slug != "" {
			args.Slug = strings.Join(append(parts, args.Slug), "-")
		}
		return args
	}
}
