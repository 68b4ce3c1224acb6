package datastructure

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrDuplicateKey = errors.New("edge key already in use")
	ErrParallelEdge = errors.New("parallel edge in a non-multi graph")
	ErrGeometry     = errors.New("edge geometry does not match its endpoints")
)

// endpoint tolerance between an edge geometry and its node coordinates
const EndpointTolerance = 1e-9

type Node struct {
	ID   int64
	X, Y float64
	Tags Tags
}

func (n Node) Point() orb.Point {
	return orb.Point{n.X, n.Y}
}

type EdgeKey struct {
	Source int64
	Target int64
	Key    int
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.Source, k.Target, k.Key)
}

type Edge struct {
	Source   int64
	Target   int64
	Key      int
	Geometry orb.LineString
	// meters
	Length   float64
	OneWay   bool
	Reversed bool
	WayIDs   []int64
	Tags     Tags
	Warnings []string
}

func (e Edge) EdgeKey() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Key: e.Key}
}

func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

func (e Edge) HasWarning(w string) bool {
	return slices.Contains(e.Warnings, w)
}

// AddWarning appends w once.
func (e *Edge) AddWarning(w string) {
	if !e.HasWarning(w) {
		e.Warnings = append(e.Warnings, w)
	}
}

func (e Edge) Clone() Edge {
	c := e
	c.Geometry = e.Geometry.Clone()
	c.WayIDs = slices.Clone(e.WayIDs)
	c.Tags = e.Tags.Clone()
	c.Warnings = slices.Clone(e.Warnings)
	return c
}

// EdgeView is one traversable direction of a stored edge. Two-way edges are
// stored once and their opposite direction is exposed with Reversed set.
type EdgeView struct {
	Edge     *Edge
	Reversed bool
}

func (v EdgeView) From() int64 {
	if v.Reversed {
		return v.Edge.Target
	}
	return v.Edge.Source
}

func (v EdgeView) To() int64 {
	if v.Reversed {
		return v.Edge.Source
	}
	return v.Edge.Target
}

func (v EdgeView) Geometry() orb.LineString {
	if v.Reversed {
		return geo.Reversed(v.Edge.Geometry)
	}
	return v.Edge.Geometry
}

type nodePair struct {
	u, v int64
}

// Graph is a directed multigraph with insertion-ordered nodes and edges.
type Graph struct {
	crs   geo.CRS
	multi bool

	nodes     []*Node
	nodeIndex map[int64]int
	nodeCount int

	edges     []*Edge
	edgeIndex map[EdgeKey]int
	edgeCount int

	out     map[int64][]EdgeKey
	in      map[int64][]EdgeKey
	degree  map[int64]int
	nextKey map[nodePair]int
}

func NewGraph(crs geo.CRS, multi bool) *Graph {
	return &Graph{
		crs:       crs,
		multi:     multi,
		nodeIndex: make(map[int64]int),
		edgeIndex: make(map[EdgeKey]int),
		out:       make(map[int64][]EdgeKey),
		in:        make(map[int64][]EdgeKey),
		degree:    make(map[int64]int),
		nextKey:   make(map[nodePair]int),
	}
}

func (g *Graph) CRS() geo.CRS   { return g.crs }
func (g *Graph) IsMulti() bool  { return g.multi }
func (g *Graph) NodeCount() int { return g.nodeCount }
func (g *Graph) EdgeCount() int { return g.edgeCount }

// SetCRS relabels the graph without touching coordinates.
func (g *Graph) SetCRS(crs geo.CRS) {
	g.crs = crs
}

// AddNode inserts n, or replaces the coordinates and tags of an existing node
// with the same id keeping its position in the node order.
func (g *Graph) AddNode(n Node) {
	n.Tags = n.Tags.Clone()
	if idx, ok := g.nodeIndex[n.ID]; ok {
		*g.nodes[idx] = n
		return
	}
	g.nodeIndex[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, &n)
	g.nodeCount++
}

func (g *Graph) HasNode(id int64) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id int64) (Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	n := *g.nodes[idx]
	n.Tags = n.Tags.Clone()
	return n, true
}

// NodePtr gives in-place access to a node. Changing the id is not allowed.
func (g *Graph) NodePtr(id int64) (*Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// Nodes returns the live nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, g.nodeCount)
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, 0, g.nodeCount)
	for _, n := range g.nodes {
		if n != nil {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// MaxNodeID returns the largest node id, or 0 for an empty graph.
func (g *Graph) MaxNodeID() int64 {
	var maxID int64
	first := true
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		if first || n.ID > maxID {
			maxID = n.ID
			first = false
		}
	}
	return maxID
}

// AddEdge inserts e with the next free key for its ordered node pair.
func (g *Graph) AddEdge(e Edge) (EdgeKey, error) {
	e.Key = g.nextKey[nodePair{e.Source, e.Target}]
	return g.insertEdge(e)
}

// AddEdgeWithKey inserts e keeping e.Key.
func (g *Graph) AddEdgeWithKey(e Edge) (EdgeKey, error) {
	if e.Key < 0 {
		return EdgeKey{}, fmt.Errorf("negative key %d: %w", e.Key, ErrDuplicateKey)
	}
	return g.insertEdge(e)
}

func (g *Graph) insertEdge(e Edge) (EdgeKey, error) {
	src, ok := g.NodePtr(e.Source)
	if !ok {
		return EdgeKey{}, fmt.Errorf("source %d: %w", e.Source, ErrNodeNotFound)
	}
	dst, ok := g.NodePtr(e.Target)
	if !ok {
		return EdgeKey{}, fmt.Errorf("target %d: %w", e.Target, ErrNodeNotFound)
	}
	key := e.EdgeKey()
	if _, ok := g.edgeIndex[key]; ok {
		return EdgeKey{}, fmt.Errorf("edge %s: %w", key, ErrDuplicateKey)
	}
	if !g.multi && g.HasEdgeBetween(e.Source, e.Target) {
		return EdgeKey{}, fmt.Errorf("edge %s: %w", key, ErrParallelEdge)
	}

	if len(e.Geometry) == 0 {
		e.Geometry = orb.LineString{src.Point(), dst.Point()}
	} else if len(e.Geometry) < 2 || !geo.PointsEqual(e.Geometry[0], src.Point(), EndpointTolerance) ||
		!geo.PointsEqual(e.Geometry[len(e.Geometry)-1], dst.Point(), EndpointTolerance) {
		return EdgeKey{}, fmt.Errorf("edge %s: %w", key, ErrGeometry)
	}

	e = e.Clone()
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, &e)
	g.edgeCount++

	g.out[e.Source] = append(g.out[e.Source], key)
	g.in[e.Target] = append(g.in[e.Target], key)
	g.degree[e.Source]++
	g.degree[e.Target]++

	pair := nodePair{e.Source, e.Target}
	if e.Key >= g.nextKey[pair] {
		g.nextKey[pair] = e.Key + 1
	}
	return key, nil
}

// HasEdgeBetween reports whether an edge source->target is stored.
func (g *Graph) HasEdgeBetween(source, target int64) bool {
	for _, k := range g.out[source] {
		if k.Target == target {
			return true
		}
	}
	return false
}

func (g *Graph) HasEdge(key EdgeKey) bool {
	_, ok := g.edgeIndex[key]
	return ok
}

// Edge returns the stored edge. The pointer must not be used to change its key.
func (g *Graph) Edge(key EdgeKey) (*Edge, bool) {
	idx, ok := g.edgeIndex[key]
	if !ok {
		return nil, false
	}
	return g.edges[idx], true
}

// Edges returns the live edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, g.edgeCount)
	for _, e := range g.edges {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) RemoveEdge(key EdgeKey) error {
	idx, ok := g.edgeIndex[key]
	if !ok {
		return fmt.Errorf("edge %s: %w", key, ErrEdgeNotFound)
	}
	g.edges[idx] = nil
	delete(g.edgeIndex, key)
	g.edgeCount--

	g.out[key.Source] = removeKey(g.out[key.Source], key)
	g.in[key.Target] = removeKey(g.in[key.Target], key)
	g.degree[key.Source]--
	g.degree[key.Target]--
	return nil
}

func removeKey(keys []EdgeKey, key EdgeKey) []EdgeKey {
	return slices.DeleteFunc(keys, func(k EdgeKey) bool { return k == key })
}

// RemoveNode deletes the node and every incident edge.
func (g *Graph) RemoveNode(id int64) error {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return fmt.Errorf("node %d: %w", id, ErrNodeNotFound)
	}
	for _, k := range g.IncidentEdgeKeys(id) {
		if err := g.RemoveEdge(k); err != nil {
			return err
		}
	}
	g.nodes[idx] = nil
	delete(g.nodeIndex, id)
	delete(g.out, id)
	delete(g.in, id)
	delete(g.degree, id)
	g.nodeCount--
	return nil
}

// Degree counts incident stored edges, a self-loop counting twice.
func (g *Graph) Degree(id int64) int {
	return g.degree[id]
}

func (g *Graph) InDegree(id int64) int  { return len(g.in[id]) }
func (g *Graph) OutDegree(id int64) int { return len(g.out[id]) }

func (g *Graph) OutEdgeKeys(id int64) []EdgeKey {
	return slices.Clone(g.out[id])
}

func (g *Graph) InEdgeKeys(id int64) []EdgeKey {
	return slices.Clone(g.in[id])
}

// IncidentEdgeKeys lists the distinct edges touching id in insertion order.
func (g *Graph) IncidentEdgeKeys(id int64) []EdgeKey {
	keys := make([]EdgeKey, 0, len(g.out[id])+len(g.in[id]))
	keys = append(keys, g.out[id]...)
	for _, k := range g.in[id] {
		if k.Source != k.Target {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b EdgeKey) int {
		return g.edgeIndex[a] - g.edgeIndex[b]
	})
	return keys
}

// Neighbors returns the distinct nodes sharing an edge with id, ignoring direction.
func (g *Graph) Neighbors(id int64) []int64 {
	var out []int64
	seen := make(map[int64]struct{})
	for _, k := range g.IncidentEdgeKeys(id) {
		other := k.Target
		if other == id {
			other = k.Source
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}

// Traversals lists every direction in which an edge can be followed out of id.
func (g *Graph) Traversals(id int64) []EdgeView {
	var views []EdgeView
	for _, k := range g.out[id] {
		e, _ := g.Edge(k)
		views = append(views, EdgeView{Edge: e})
	}
	for _, k := range g.in[id] {
		e, _ := g.Edge(k)
		if !e.OneWay {
			views = append(views, EdgeView{Edge: e, Reversed: true})
		}
	}
	return views
}

// TraversalCount is the number of directed traversals, two-way edges counting twice.
func (g *Graph) TraversalCount() int {
	m := 0
	for _, e := range g.edges {
		if e == nil {
			continue
		}
		m++
		if !e.OneWay {
			m++
		}
	}
	return m
}

// Bound is the bounding box of all node coordinates.
func (g *Graph) Bound() orb.Bound {
	var mp orb.MultiPoint
	for _, n := range g.Nodes() {
		mp = append(mp, n.Point())
	}
	return mp.Bound()
}

// Clone deep copies the graph, dropping tombstones.
func (g *Graph) Clone() *Graph {
	c := NewGraph(g.crs, g.multi)
	for _, n := range g.Nodes() {
		c.AddNode(*n)
	}
	for _, e := range g.Edges() {
		ec := e.Clone()
		key := ec.EdgeKey()
		c.edgeIndex[key] = len(c.edges)
		c.edges = append(c.edges, &ec)
		c.edgeCount++
		c.out[ec.Source] = append(c.out[ec.Source], key)
		c.in[ec.Target] = append(c.in[ec.Target], key)
		c.degree[ec.Source]++
		c.degree[ec.Target]++
	}
	for p, k := range g.nextKey {
		c.nextKey[p] = k
	}
	return c
}

// NextKey is the key the next AddEdge between source and target would receive.
func (g *Graph) NextKey(source, target int64) int {
	return g.nextKey[nodePair{source, target}]
}

// Validate checks the structural invariants of the graph.
func (g *Graph) Validate() error {
	for _, e := range g.Edges() {
		src, ok := g.NodePtr(e.Source)
		if !ok {
			return fmt.Errorf("edge %s source: %w", e.EdgeKey(), ErrNodeNotFound)
		}
		dst, ok := g.NodePtr(e.Target)
		if !ok {
			return fmt.Errorf("edge %s target: %w", e.EdgeKey(), ErrNodeNotFound)
		}
		if len(e.Geometry) < 2 ||
			!geo.PointsEqual(e.Geometry[0], src.Point(), EndpointTolerance) ||
			!geo.PointsEqual(e.Geometry[len(e.Geometry)-1], dst.Point(), EndpointTolerance) {
			return fmt.Errorf("edge %s: %w", e.EdgeKey(), ErrGeometry)
		}
	}
	return nil
}
