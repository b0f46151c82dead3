// Package spatialindex maintains an in-memory KD-tree over unit sphere
// positions for radius queries. Angular radius searches reduce to chord
// distance bounds on the 3D embedding, which keeps the RA 0/360 seam and
// the poles exact.
package spatialindex

import (
	"sort"
	"sync"

	"github.com/Ramsey-B/aster/pkg/sky"
)

// rebuild when tombstones dominate the live set
const (
	rebuildMinTombstones = 32
	rebuildRatio         = 0.5
)

// chord bounds carry a tiny slack so a separation exactly equal to the
// query radius is always a hit
const boundarySlack = 1e-12

// Hit is one index result, ordered by increasing separation.
type Hit struct {
	ID         string
	RA         float64
	Dec        float64
	Separation float64 // arcsec
}

// Entry is a position for bulk loading.
type Entry struct {
	ID  string
	RA  float64
	Dec float64
}

type node struct {
	id      string
	vec     sky.Vec3
	ra, dec float64
	axis    int
	left    *node
	right   *node
	deleted bool
}

func (n *node) component(axis int) float64 {
	switch axis {
	case 0:
		return n.vec.X
	case 1:
		return n.vec.Y
	default:
		return n.vec.Z
	}
}

func component(v sky.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Index is a concurrency-safe KD-tree keyed by object id. Removal is by
// tombstone; the tree compacts itself once tombstones outnumber half the
// live nodes.
type Index struct {
	mu         sync.RWMutex
	root       *node
	nodes      map[string]*node
	tombstones int
}

// New creates an empty index.
func New() *Index {
	return &Index{nodes: make(map[string]*node)}
}

// Len returns the number of live entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Insert adds a position. Inserting an existing id replaces its position.
func (idx *Index) Insert(id string, ra, dec float64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(id, ra, dec)
}

// Remove tombstones an entry. Returns false when the id is unknown.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.removeLocked(id)
}

// Update atomically moves an entry to a new position. Readers observe
// either the old or the new position, never both or neither.
func (idx *Index) Update(id string, ra, dec float64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	idx.insertLocked(id, ra, dec)
}

func (idx *Index) insertLocked(id string, ra, dec float64) {
	if existing, ok := idx.nodes[id]; ok {
		existing.deleted = true
		idx.tombstones++
	}

	ra = sky.NormalizeRA(ra)
	n := &node{id: id, vec: sky.Vector(ra, dec), ra: ra, dec: dec}
	idx.nodes[id] = n

	if idx.root == nil {
		idx.root = n
		return
	}

	cur := idx.root
	for {
		n.axis = (cur.axis + 1) % 3
		if n.component(cur.axis) < cur.component(cur.axis) {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

func (idx *Index) removeLocked(id string) bool {
	n, ok := idx.nodes[id]
	if !ok {
		return false
	}
	n.deleted = true
	delete(idx.nodes, id)
	idx.tombstones++

	if idx.tombstones >= rebuildMinTombstones && float64(idx.tombstones) >= rebuildRatio*float64(len(idx.nodes)) {
		idx.rebuildLocked()
	}
	return true
}

// QueryRadius returns all entries within radiusArcsec of (ra, dec),
// boundary inclusive, ordered by increasing separation then id.
func (idx *Index) QueryRadius(ra, dec, radiusArcsec float64) []Hit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ra = sky.NormalizeRA(ra)
	q := sky.Vector(ra, dec)
	bound := sky.ChordForRadius(radiusArcsec) + boundarySlack
	boundSq := bound * bound

	var hits []Hit
	idx.search(idx.root, q, bound, boundSq, func(n *node) {
		hits = append(hits, Hit{
			ID:         n.id,
			RA:         n.ra,
			Dec:        n.dec,
			Separation: sky.Separation(ra, dec, n.ra, n.dec),
		})
	})

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Separation != hits[j].Separation {
			return hits[i].Separation < hits[j].Separation
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

func (idx *Index) search(n *node, q sky.Vec3, bound, boundSq float64, emit func(*node)) {
	if n == nil {
		return
	}

	if !n.deleted {
		dx := q.X - n.vec.X
		dy := q.Y - n.vec.Y
		dz := q.Z - n.vec.Z
		if dx*dx+dy*dy+dz*dz <= boundSq {
			emit(n)
		}
	}

	diff := component(q, n.axis) - n.component(n.axis)
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}

	idx.search(near, q, bound, boundSq, emit)
	if diff*diff <= boundSq {
		idx.search(far, q, bound, boundSq, emit)
	}
}

// Rebuild compacts tombstones into a balanced tree.
func (idx *Index) Rebuild() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rebuildLocked()
}

func (idx *Index) rebuildLocked() {
	live := make([]*node, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		live = append(live, &node{id: n.id, vec: n.vec, ra: n.ra, dec: n.dec})
	}
	idx.nodes = make(map[string]*node, len(live))
	for _, n := range live {
		idx.nodes[n.id] = n
	}
	idx.tombstones = 0
	idx.root = buildBalanced(live, 0)
}

func buildBalanced(nodes []*node, axis int) *node {
	if len(nodes) == 0 {
		return nil
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].component(axis) < nodes[j].component(axis)
	})
	mid := len(nodes) / 2
	n := nodes[mid]
	n.axis = axis
	next := (axis + 1) % 3
	n.left = buildBalanced(nodes[:mid], next)
	n.right = buildBalanced(nodes[mid+1:], next)
	return n
}

// Load replaces the index contents with a balanced tree over entries,
// used for warm start from the store.
func (idx *Index) Load(entries []Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	live := make([]*node, 0, len(entries))
	idx.nodes = make(map[string]*node, len(entries))
	for _, e := range entries {
		ra := sky.NormalizeRA(e.RA)
		n := &node{id: e.ID, vec: sky.Vector(ra, e.Dec), ra: ra, dec: e.Dec}
		if _, ok := idx.nodes[e.ID]; ok {
			continue
		}
		idx.nodes[e.ID] = n
		live = append(live, n)
	}
	idx.tombstones = 0
	idx.root = buildBalanced(live, 0)
}

// Snapshot returns the live entries, unordered.
func (idx *Index) Snapshot() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Entry, 0, len(idx.nodes))
	for _, n := range idx.nodes {
		out = append(out, Entry{ID: n.id, RA: n.ra, Dec: n.dec})
	}
	return out
}
