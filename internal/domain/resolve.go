package domain

import "strings"

// maxTraversalDepth bounds parent walks over malformed collections.
const maxTraversalDepth = 10

// NodeFormatter renders a single node inside a path.
type NodeFormatter func(Node) string

// NodeName renders a node by its display name.
func NodeName(n Node) string { return n.Name }

// ResolvePaths rebuilds root-to-leaf paths from a flat node collection and
// renders the slice of each path that falls in [start, end].
//
// Index 0 of a rebuilt path is the most root-ward node present, which sits
// at absolute level minLevel (the first level that was active when the
// chain was synchronized). A leaf is a node no other node in the collection
// names as parent; when every node is somebody's parent (a cycle), every
// node is treated as a leaf. Walks stop at a missing parent, a revisited
// node or maxTraversalDepth hops.
func ResolvePaths(nodes []Node, start, end, minLevel Level, format NodeFormatter, sep string) []string {
	if len(nodes) == 0 {
		return nil
	}
	if format == nil {
		format = NodeName
	}

	byID := make(map[NodeID]Node, len(nodes))
	unique := make([]Node, 0, len(nodes))
	isParent := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = n
		unique = append(unique, n)
		if n.ParentID != RootID && n.ParentID != n.ID {
			isParent[n.ParentID] = true
		}
	}

	leaves := make([]Node, 0, len(unique))
	for _, n := range unique {
		if !isParent[n.ID] {
			leaves = append(leaves, n)
		}
	}
	if len(leaves) == 0 {
		leaves = unique
	}

	out := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		path := walkToRoot(leaf, byID)
		window, ok := sliceWindow(path, start, end, minLevel)
		if !ok {
			continue
		}
		parts := make([]string, len(window))
		for i, n := range window {
			parts[i] = format(n)
		}
		out = append(out, strings.Join(parts, sep))
	}
	return out
}

// walkToRoot follows parent links from leaf and returns the path root first.
func walkToRoot(leaf Node, byID map[NodeID]Node) []Node {
	path := []Node{leaf}
	visited := map[NodeID]bool{leaf.ID: true}

	cur := leaf
	for hops := 0; cur.ParentID != RootID && hops < maxTraversalDepth; hops++ {
		parent, ok := byID[cur.ParentID]
		if !ok || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		path = append(path, parent)
		cur = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// sliceWindow maps absolute levels [start, end] onto path indexes, where
// index 0 corresponds to minLevel.
func sliceWindow(path []Node, start, end, minLevel Level) ([]Node, bool) {
	n := len(path)
	startIndex := max(0, int(start-minLevel))
	endIndex := min(n, int(end-minLevel)+1)
	if startIndex >= n || startIndex >= endIndex {
		return nil, false
	}
	return path[startIndex:endIndex], true
}
