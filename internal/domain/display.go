package domain

import "strings"

// Default join strings for rendered hierarchies.
const (
	DefaultSeparator     = " > "
	DefaultPathSeparator = ", "
)

// Renderer turns an event's node collection into display strings. The same
// Renderer value backs every display surface so editor previews and final
// output stay byte-identical.
type Renderer struct {
	// MinLevel is the first level that was active when chains were built.
	MinLevel Level
	// Separator joins nodes inside a path.
	Separator string
	// PathSeparator joins separate leaf paths.
	PathSeparator string
	// Format renders one node; nil means NodeName.
	Format NodeFormatter
}

// NewRenderer returns a Renderer for chains built under rng with the
// default separators.
func NewRenderer(rng LevelRange) Renderer {
	return Renderer{MinLevel: rng.Min, Separator: DefaultSeparator, PathSeparator: DefaultPathSeparator}
}

// Paths resolves the formatted paths for the window [start, end].
func (r Renderer) Paths(nodes []Node, start, end Level) []string {
	return ResolvePaths(nodes, start, end, r.MinLevel, r.Format, r.Separator)
}

// Display joins paths and appends trailingLabel (typically the venue name)
// with the node separator. With no paths the label stands alone.
func (r Renderer) Display(paths []string, trailingLabel string) string {
	if len(paths) == 0 {
		return trailingLabel
	}
	out := strings.Join(paths, r.PathSeparator)
	if trailingLabel != "" {
		out += r.Separator + trailingLabel
	}
	return out
}

// Render is Paths followed by Display.
func (r Renderer) Render(nodes []Node, start, end Level, trailingLabel string) ([]string, string) {
	paths := r.Paths(nodes, start, end)
	return paths, r.Display(paths, trailingLabel)
}
