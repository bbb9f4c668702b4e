package spatial

import (
	"math"
	"sort"

	"georag/models"
)

// Item is one indexed Feature: its dataset, stable feature identifier,
// and geometry. Tie-breaks in candidate ordering are by DatasetName then
// FeatureID lexicographically (§4.2).
type Item struct {
	DatasetName string
	FeatureID   string
	Geometry    models.Geometry
	envelope    Envelope
}

// nodeFanout bounds how many children a node holds, matching rstar's
// default branching factor closely enough for this engine's scale.
const nodeFanout = 16

type node struct {
	envelope Envelope
	leaf     *Item // non-nil for leaf nodes
	children []*node
}

func (n *node) isLeaf() bool { return n.leaf != nil }

// Tree is a bulk-loaded R*-tree keyed by each Item's envelope in
// EPSG:4326, grounded on the Rust original's georag-core geo/index.rs
// (SpatialIndex, backed there by the rstar crate). Go's ecosystem has no
// maintained R-tree library exercised anywhere in the retrieved pack, so
// this is hand-ported using sort-tile-recursive bulk loading, the
// standard construction for a static R*-tree (see DESIGN.md).
type Tree struct {
	root  *node
	count int
}

// Build bulk-loads a tree from items using sort-tile-recursive packing:
// O(n log n), and produces well-balanced leaves without the per-insert
// rebalancing a dynamic R*-tree would need.
func Build(items []Item) *Tree {
	if len(items) == 0 {
		return &Tree{root: &node{envelope: Envelope{}}}
	}

	leaves := make([]*node, len(items))
	for i := range items {
		items[i].envelope = EnvelopeOf(items[i].Geometry)
		leaves[i] = &node{envelope: items[i].envelope, leaf: &items[i]}
	}

	root := strPack(leaves)
	return &Tree{root: root, count: len(items)}
}

// strPack recursively packs nodes into a balanced tree using the
// sort-tile-recursive heuristic: sort by X, slice into
// ceil(sqrt(levelFanout)) vertical strips, sort each strip by Y, and
// group every nodeFanout entries into a parent.
func strPack(nodes []*node) *node {
	for len(nodes) > 1 {
		nodes = packLevel(nodes)
	}
	return nodes[0]
}

func packLevel(nodes []*node) []*node {
	n := len(nodes)
	groups := int(math.Ceil(float64(n) / float64(nodeFanout)))
	if groups <= 1 {
		return []*node{wrapAll(nodes)}
	}

	stripCount := int(math.Ceil(math.Sqrt(float64(groups))))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].envelope.CenterX() < nodes[j].envelope.CenterX() })

	stripSize := int(math.Ceil(float64(n) / float64(stripCount)))
	var parents []*node
	for s := 0; s < n; s += stripSize {
		end := min(s+stripSize, n)
		strip := nodes[s:end]
		sort.Slice(strip, func(i, j int) bool { return strip[i].envelope.CenterY() < strip[j].envelope.CenterY() })
		for g := 0; g < len(strip); g += nodeFanout {
			gend := min(g+nodeFanout, len(strip))
			parents = append(parents, wrapAll(strip[g:gend]))
		}
	}
	return parents
}

func wrapAll(children []*node) *node {
	env := children[0].envelope
	for _, c := range children[1:] {
		env = env.Union(c.envelope)
	}
	cs := make([]*node, len(children))
	copy(cs, children)
	return &node{envelope: env, children: cs}
}

// Len returns the number of items in the tree.
func (t *Tree) Len() int { return t.count }

// QueryBBox returns every item whose envelope intersects bound, pruning
// whole subtrees whose envelope does not (§4.2 envelope query).
func (t *Tree) QueryBBox(bound Envelope) []*Item {
	var out []*Item
	if t.root == nil {
		return out
	}
	var walk func(n *node)
	walk = func(n *node) {
		if !n.envelope.Intersects(bound) {
			return
		}
		if n.isLeaf() {
			out = append(out, n.leaf)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	sortCandidates(out)
	return out
}

// All returns every item in the tree, in tie-break order.
func (t *Tree) All() []*Item {
	var out []*Item
	if t.root == nil {
		return out
	}
	var walk func(n *node)
	walk = func(n *node) {
		if n.isLeaf() {
			out = append(out, n.leaf)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	sortCandidates(out)
	return out
}

// QueryKNearest returns the k items whose envelope is closest to point,
// using envelope-to-point distance as a cheap lower bound (§4.2 exposes
// exact nearest-neighbor semantics only through the predicate/dwithin
// queries).
func (t *Tree) QueryKNearest(x, y float64, k int) []*Item {
	all := t.All()
	sort.Slice(all, func(i, j int) bool {
		return all[i].envelope.DistanceToPoint(x, y) < all[j].envelope.DistanceToPoint(x, y)
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// sortCandidates applies the §4.2 tie-break: dataset name, then feature
// identifier lexicographically.
func sortCandidates(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DatasetName != items[j].DatasetName {
			return items[i].DatasetName < items[j].DatasetName
		}
		return items[i].FeatureID < items[j].FeatureID
	})
}
