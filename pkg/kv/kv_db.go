package kv

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/streetgraph/pkg/concurrent"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"
)

const (
	H3Resolution = 9
	// spacing of the points sampled along a segment when indexing it
	sampleSpacing = 100.0
	batchSize     = 1000
	maxRingLevel  = 10
)

var (
	ErrEdgesNotFound = errors.New("edges not found")
)

type KVDB struct {
	db  *badger.DB
	log *zap.Logger
}

func NewKVDB(db *badger.DB, log *zap.Logger) *KVDB {
	return &KVDB{db: db, log: logger.OrNop(log)}
}

// OpenBadger opens the edge store at path, or an in-memory store when inMemory is set.
func OpenBadger(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	return badger.Open(opts.WithLogger(nil))
}

// BuildH3IndexedEdges stores every edge of g under each H3 cell its geometry passes through.
func (k *KVDB) BuildH3IndexedEdges(ctx context.Context, g *datastructure.Graph) error {
	if g.CRS().IsProjected() {
		return errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "h3 index needs a geographic graph, got %s", g.CRS())
	}
	k.log.Info("creating h3 indexed edges", zap.Int("edges", g.EdgeCount()))

	cells := make(map[string][]KVEdge)
	order := make([]string, 0)
	for i, e := range g.Edges() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if (i+1)%50000 == 0 {
			k.log.Sugar().Infof("indexed %d edges...", i+1)
		}

		kvEdge := newKVEdge(e)
		for _, cell := range edgeCells(e.Geometry) {
			key := cell.String()
			if _, ok := cells[key]; !ok {
				order = append(order, key)
			}
			cells[key] = append(cells[key], kvEdge)
		}
	}

	workers := concurrent.NewWorkerPool[saveCellJob, encodedCell](runtime.NumCPU(), len(order))
	for _, key := range order {
		workers.AddJob(saveCellJob{key: key, edges: cells[key]})
	}
	workers.Close()
	workers.Start(encodeCellJob)
	workers.Wait()

	batches := make([]encodedCell, 0, batchSize)
	for cell := range workers.CollectResults() {
		if cell.err != nil {
			return errs.WrapErrorf(cell.err, errs.ErrCodeInternal, "encode cell %s", cell.key)
		}
		batches = append(batches, cell)
		if len(batches) == batchSize {
			if err := k.saveBatchEdges(ctx, batches); err != nil {
				return err
			}
			batches = make([]encodedCell, 0, batchSize)
		}
	}
	if len(batches) > 0 {
		if err := k.saveBatchEdges(ctx, batches); err != nil {
			return err
		}
	}

	k.log.Info("h3 indexed edges saved", zap.Int("cells", len(order)))
	return nil
}

// edgeCells lists the cells hit by points sampled along ls, in path order.
func edgeCells(ls orb.LineString) []h3.Cell {
	seen := make(map[h3.Cell]struct{})
	cells := make([]h3.Cell, 0, len(ls))
	add := func(p orb.Point) {
		cell := h3.LatLngToCell(h3.NewLatLng(p.Lat(), p.Lon()), H3Resolution)
		if _, ok := seen[cell]; ok {
			return
		}
		seen[cell] = struct{}{}
		cells = append(cells, cell)
	}

	for i, p := range ls {
		add(p)
		if i == len(ls)-1 {
			break
		}
		next := ls[i+1]
		n := int(math.Ceil(geo.GreatCircleDistance(p, next) / sampleSpacing))
		for s := 1; s < n; s++ {
			f := float64(s) / float64(n)
			add(orb.Point{p[0] + f*(next[0]-p[0]), p[1] + f*(next[1]-p[1])})
		}
	}
	return cells
}

func (k *KVDB) saveBatchEdges(ctx context.Context, cells []encodedCell) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, cell := range cells {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := batch.Set([]byte(cell.key), cell.value); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		k.log.Error("error saving edges", zap.Error(err))
		return err
	}
	k.log.Debug("saved cell batch", zap.Int("cells", len(cells)))
	return nil
}

// get returns nil when key is absent.
func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}

func (k *KVDB) cellEdges(cell h3.Cell) ([]KVEdge, error) {
	val, err := k.get([]byte(cell.String()))
	if err != nil {
		return nil, err
	}
	return loadEdges(val)
}

func (k *KVDB) collect(cells []h3.Cell, seen map[datastructure.EdgeKey]KVEdge, order *[]datastructure.EdgeKey) error {
	for _, cell := range cells {
		edges, err := k.cellEdges(cell)
		if err != nil {
			return err
		}
		for _, e := range edges {
			key := e.EdgeKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = e
			*order = append(*order, key)
		}
	}
	return nil
}

type NearestEdge struct {
	Key      datastructure.EdgeKey
	WayIDs   []int64
	Length   float64
	Geometry orb.LineString
	// meters from the query point to Snapped
	Distance float64
	Snapped  orb.Point
}

// NearestEdgesFromPointCoord returns the edges indexed around (lat, lon), nearest first.
// The search widens ring by ring until a cell holds an edge. limit <= 0 keeps every candidate.
func (k *KVDB) NearestEdgesFromPointCoord(lat, lon float64, limit int) ([]NearestEdge, error) {
	if !geo.ValidLatLon(lat, lon) {
		return nil, errs.NewErrorf(errs.ErrCodeBadParamInput, "invalid coordinate (%v, %v)", lat, lon)
	}
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), H3Resolution)

	seen := make(map[datastructure.EdgeKey]KVEdge)
	order := make([]datastructure.EdgeKey, 0)
	if err := k.collect([]h3.Cell{cell}, seen, &order); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		if err := k.collect(kRingIndexesArea(lat, lon, 1), seen, &order); err != nil {
			return nil, err
		}
	}
	for lev := 1; lev <= maxRingLevel && len(order) == 0; lev++ {
		if err := k.collect(h3.GridDisk(cell, lev), seen, &order); err != nil {
			return nil, err
		}
	}
	if len(order) == 0 {
		return nil, errs.WrapErrorf(ErrEdgesNotFound, errs.ErrCodeNotFound, "no edge near (%v, %v)", lat, lon)
	}

	p := orb.Point{lon, lat}
	matches := make([]NearestEdge, 0, len(order))
	for _, key := range order {
		e := seen[key]
		ls := e.Geometry()
		dist, snapped := geo.PointLineDistance(p, ls, geo.WGS84)
		matches = append(matches, NearestEdge{
			Key:      key,
			WayIDs:   e.WayIDs,
			Length:   e.Length,
			Geometry: ls,
			Distance: dist,
			Snapped:  snapped,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Key.Source != b.Key.Source {
			return a.Key.Source < b.Key.Source
		}
		if a.Key.Target != b.Key.Target {
			return a.Key.Target < b.Key.Target
		}
		return a.Key.Key < b.Key.Key
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func kRingIndexesArea(lat, lon, searchRadiusKm float64) []h3.Cell {
	home := h3.NewLatLng(lat, lon)
	origin := h3.LatLngToCell(home, H3Resolution)
	originArea := h3.CellAreaKm2(origin)
	searchArea := math.Pi * searchRadiusKm * searchRadiusKm

	radius := 0
	diskArea := originArea

	for diskArea < searchArea {
		radius++
		cellCount := float64(3*radius*(radius+1) + 1)
		diskArea = cellCount * originArea
	}

	return h3.GridDisk(origin, radius)
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
