package kv

import (
	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/paulmach/orb"
)

// KVEdge is the value stored per H3 cell. Coords are flattened lon/lat pairs.
type KVEdge struct {
	Source int64
	Target int64
	Key    int64
	WayIDs []int64
	Length float64
	Coords []float64
}

func newKVEdge(e *datastructure.Edge) KVEdge {
	coords := make([]float64, 0, 2*len(e.Geometry))
	for _, p := range e.Geometry {
		coords = append(coords, p[0], p[1])
	}
	return KVEdge{
		Source: e.Source,
		Target: e.Target,
		Key:    int64(e.Key),
		WayIDs: e.WayIDs,
		Length: e.Length,
		Coords: coords,
	}
}

func (e KVEdge) EdgeKey() datastructure.EdgeKey {
	return datastructure.EdgeKey{Source: e.Source, Target: e.Target, Key: int(e.Key)}
}

func (e KVEdge) Geometry() orb.LineString {
	ls := make(orb.LineString, 0, len(e.Coords)/2)
	for i := 0; i+1 < len(e.Coords); i += 2 {
		ls = append(ls, orb.Point{e.Coords[i], e.Coords[i+1]})
	}
	return ls
}

func encodeEdges(edges []KVEdge) ([]byte, error) {
	bb, err := binary.Marshal(edges)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func loadEdges(bbCompressed []byte) ([]KVEdge, error) {
	if len(bbCompressed) == 0 {
		return nil, nil
	}
	bb, err := decompress(bbCompressed)
	if err != nil {
		return nil, err
	}
	var edges []KVEdge
	err = binary.Unmarshal(bb, &edges)
	return edges, err
}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}
	return bb, nil
}
