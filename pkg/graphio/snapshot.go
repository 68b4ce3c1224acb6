package graphio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kelindar/binary"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
)

const snapshotVersion uint16 = 1

type snapshotTag struct {
	Key  string
	Kind uint8
	Str  string
	Num  float64
	Bool bool
	List []string
}

type snapshotNode struct {
	ID   int64
	X, Y float64
	Tags []snapshotTag
}

type snapshotEdge struct {
	Source   int64
	Target   int64
	Key      int64
	Coords   []float64
	Length   float64
	OneWay   bool
	Reversed bool
	WayIDs   []int64
	Tags     []snapshotTag
	Warnings []string
}

type snapshotGraph struct {
	Version uint16
	EPSG    int64
	Multi   bool
	Nodes   []snapshotNode
	Edges   []snapshotEdge
}

func encodeTags(tags datastructure.Tags) []snapshotTag {
	out := make([]snapshotTag, 0, tags.Len())
	for _, k := range tags.Keys() {
		v, _ := tags.Get(k)
		st := snapshotTag{Key: k, Kind: uint8(v.Kind())}
		switch v.Kind() {
		case datastructure.KindString:
			st.Str, _ = v.AsString()
		case datastructure.KindNumber:
			st.Num, _ = v.AsNumber()
		case datastructure.KindBool:
			st.Bool, _ = v.AsBool()
		case datastructure.KindStringList:
			st.List, _ = v.AsStringList()
		}
		out = append(out, st)
	}
	return out
}

func decodeTags(in []snapshotTag) (datastructure.Tags, error) {
	tags := datastructure.NewTags()
	for _, st := range in {
		switch datastructure.TagKind(st.Kind) {
		case datastructure.KindString:
			tags.Set(st.Key, datastructure.StringTag(st.Str))
		case datastructure.KindNumber:
			tags.Set(st.Key, datastructure.NumberTag(st.Num))
		case datastructure.KindBool:
			tags.Set(st.Key, datastructure.BoolTag(st.Bool))
		case datastructure.KindStringList:
			tags.Set(st.Key, datastructure.StringListTag(st.List))
		default:
			return tags, fmt.Errorf("tag %q has unknown kind %d", st.Key, st.Kind)
		}
	}
	return tags, nil
}

func flatten(ls orb.LineString) []float64 {
	coords := make([]float64, 0, 2*len(ls))
	for _, p := range ls {
		coords = append(coords, p[0], p[1])
	}
	return coords
}

func unflatten(coords []float64) orb.LineString {
	ls := make(orb.LineString, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		ls = append(ls, orb.Point{coords[i], coords[i+1]})
	}
	return ls
}

// WriteSnapshot writes g as a zstd compressed binary snapshot.
func WriteSnapshot(w io.Writer, g *datastructure.Graph) error {
	sg := snapshotGraph{
		Version: snapshotVersion,
		EPSG:    int64(g.CRS().EPSG),
		Multi:   g.IsMulti(),
		Nodes:   make([]snapshotNode, 0, g.NodeCount()),
		Edges:   make([]snapshotEdge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		sg.Nodes = append(sg.Nodes, snapshotNode{ID: n.ID, X: n.X, Y: n.Y, Tags: encodeTags(n.Tags)})
	}
	for _, e := range g.Edges() {
		sg.Edges = append(sg.Edges, snapshotEdge{
			Source:   e.Source,
			Target:   e.Target,
			Key:      int64(e.Key),
			Coords:   flatten(e.Geometry),
			Length:   e.Length,
			OneWay:   e.OneWay,
			Reversed: e.Reversed,
			WayIDs:   e.WayIDs,
			Tags:     encodeTags(e.Tags),
			Warnings: e.Warnings,
		})
	}

	encoded, err := binary.Marshal(sg)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	var buf bytes.Buffer
	if err := compressData(encoded, &buf); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*datastructure.Graph, error) {
	var buf bytes.Buffer
	if err := decompressData(r, &buf); err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var sg snapshotGraph
	if err := binary.Unmarshal(buf.Bytes(), &sg); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if sg.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", sg.Version)
	}

	g := datastructure.NewGraph(geo.CRS{EPSG: int(sg.EPSG)}, sg.Multi)
	for _, sn := range sg.Nodes {
		tags, err := decodeTags(sn.Tags)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", sn.ID, err)
		}
		g.AddNode(datastructure.Node{ID: sn.ID, X: sn.X, Y: sn.Y, Tags: tags})
	}
	for _, se := range sg.Edges {
		tags, err := decodeTags(se.Tags)
		if err != nil {
			return nil, fmt.Errorf("edge (%d,%d,%d): %w", se.Source, se.Target, se.Key, err)
		}
		_, err = g.AddEdgeWithKey(datastructure.Edge{
			Source:   se.Source,
			Target:   se.Target,
			Key:      int(se.Key),
			Geometry: unflatten(se.Coords),
			Length:   se.Length,
			OneWay:   se.OneWay,
			Reversed: se.Reversed,
			WayIDs:   se.WayIDs,
			Tags:     tags,
			Warnings: se.Warnings,
		})
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SaveSnapshot writes g to path.
func SaveSnapshot(path string, g *datastructure.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot reads a graph written by SaveSnapshot.
func LoadSnapshot(path string) (*datastructure.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(f)
}
