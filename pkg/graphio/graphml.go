package graphio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

var (
	ErrInvalidGraphML = errors.New("invalid graphml document")
	// ErrUnencodableText is returned for tag text that XML 1.0 has no character for.
	ErrUnencodableText = errors.New("text cannot be represented in graphml")
)

// ids of the attributes every exported graph carries. tag keys get n<i> / e<i>.
const (
	keyCRS      = "d_crs"
	keyMulti    = "d_multi"
	keyX        = "d_x"
	keyY        = "d_y"
	keyLength   = "d_length"
	keyOneWay   = "d_oneway"
	keyReversed = "d_reversed"
	keyWayIDs   = "d_osmid"
	keyGeometry = "d_geometry"
	keyWarnings = "d_warnings"
)

type keyDef struct {
	id     string
	domain string
	name   string
	typ    string
	list   string
}

var coreKeys = []keyDef{
	{keyCRS, "graph", "crs", "string", ""},
	{keyMulti, "graph", "multi", "boolean", ""},
	{keyX, "node", "x", "double", ""},
	{keyY, "node", "y", "double", ""},
	{keyLength, "edge", "length", "double", ""},
	{keyOneWay, "edge", "oneway", "boolean", ""},
	{keyReversed, "edge", "reversed", "boolean", ""},
	{keyWayIDs, "edge", "osmid", "string", "long"},
	{keyGeometry, "edge", "geometry", "string", ""},
	{keyWarnings, "edge", "warnings", "string", "string"},
}

type tagSlot struct {
	name string
	kind datastructure.TagKind
}

// tagKeys assigns one graphml key per (tag name, value kind), in first-seen order.
type tagKeys struct {
	prefix string
	domain string
	ids    map[tagSlot]string
	order  []tagSlot
}

func newTagKeys(prefix, domain string) *tagKeys {
	return &tagKeys{prefix: prefix, domain: domain, ids: make(map[tagSlot]string)}
}

func (tk *tagKeys) collect(tags datastructure.Tags) {
	for _, k := range tags.Keys() {
		v, _ := tags.Get(k)
		slot := tagSlot{k, v.Kind()}
		if _, ok := tk.ids[slot]; ok {
			continue
		}
		tk.ids[slot] = tk.prefix + strconv.Itoa(len(tk.order))
		tk.order = append(tk.order, slot)
	}
}

func (tk *tagKeys) defs() []keyDef {
	defs := make([]keyDef, 0, len(tk.order))
	for _, slot := range tk.order {
		typ, list := graphMLType(slot.kind)
		defs = append(defs, keyDef{id: tk.ids[slot], domain: tk.domain, name: slot.name, typ: typ, list: list})
	}
	return defs
}

func graphMLType(kind datastructure.TagKind) (string, string) {
	switch kind {
	case datastructure.KindNumber:
		return "double", ""
	case datastructure.KindBool:
		return "boolean", ""
	case datastructure.KindStringList:
		return "string", "string"
	}
	return "string", ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteGraphML writes g as a GraphML document. Nodes, edges and tags keep their order.
func WriteGraphML(w io.Writer, g *datastructure.Graph) error {
	nodeKeys := newTagKeys("n", "node")
	for _, n := range g.Nodes() {
		nodeKeys.collect(n.Tags)
	}
	edgeKeys := newTagKeys("e", "edge")
	for _, e := range g.Edges() {
		edgeKeys.collect(e.Tags)
	}

	doc := etree.NewDocument()
	// escape \r and friends as character references so they survive a read
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("graphml")
	root.CreateAttr("xmlns", graphMLNamespace)

	for _, defs := range [][]keyDef{coreKeys, nodeKeys.defs(), edgeKeys.defs()} {
		for _, def := range defs {
			writeKey(root, def)
		}
	}

	graph := root.CreateElement("graph")
	graph.CreateAttr("id", "G")
	graph.CreateAttr("edgedefault", "directed")
	writeData(graph, keyCRS, g.CRS().String())
	writeData(graph, keyMulti, strconv.FormatBool(g.IsMulti()))

	for _, n := range g.Nodes() {
		el := graph.CreateElement("node")
		el.CreateAttr("id", strconv.FormatInt(n.ID, 10))
		writeData(el, keyX, formatFloat(n.X))
		writeData(el, keyY, formatFloat(n.Y))
		if err := writeTags(el, n.Tags, nodeKeys); err != nil {
			return fmt.Errorf("node %d: %w", n.ID, err)
		}
	}

	for _, e := range g.Edges() {
		el := graph.CreateElement("edge")
		el.CreateAttr("id", strconv.Itoa(e.Key))
		el.CreateAttr("source", strconv.FormatInt(e.Source, 10))
		el.CreateAttr("target", strconv.FormatInt(e.Target, 10))
		writeData(el, keyLength, formatFloat(e.Length))
		writeData(el, keyOneWay, strconv.FormatBool(e.OneWay))
		writeData(el, keyReversed, strconv.FormatBool(e.Reversed))

		wayIDs := e.WayIDs
		if wayIDs == nil {
			wayIDs = []int64{}
		}
		bb, err := json.Marshal(wayIDs)
		if err != nil {
			return fmt.Errorf("edge %s way ids: %w", e.EdgeKey(), err)
		}
		writeData(el, keyWayIDs, string(bb))

		bb, err = geojson.NewGeometry(e.Geometry).MarshalJSON()
		if err != nil {
			return fmt.Errorf("edge %s geometry: %w", e.EdgeKey(), err)
		}
		writeData(el, keyGeometry, string(bb))

		if len(e.Warnings) > 0 {
			bb, err = json.Marshal(e.Warnings)
			if err != nil {
				return fmt.Errorf("edge %s warnings: %w", e.EdgeKey(), err)
			}
			writeData(el, keyWarnings, string(bb))
		}
		if err := writeTags(el, e.Tags, edgeKeys); err != nil {
			return fmt.Errorf("edge %s: %w", e.EdgeKey(), err)
		}
	}

	_, err := doc.WriteTo(w)
	return err
}

func writeKey(root *etree.Element, def keyDef) {
	el := root.CreateElement("key")
	el.CreateAttr("id", def.id)
	el.CreateAttr("for", def.domain)
	el.CreateAttr("attr.name", def.name)
	el.CreateAttr("attr.type", def.typ)
	if def.list != "" {
		el.CreateAttr("attr.list", def.list)
	}
}

func writeData(el *etree.Element, key, text string) {
	d := el.CreateElement("data")
	d.CreateAttr("key", key)
	d.SetText(text)
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func checkXMLText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid utf-8 in %q", ErrUnencodableText, s)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: character %U in %q", ErrUnencodableText, r, s)
		}
	}
	return nil
}

func writeTags(el *etree.Element, tags datastructure.Tags, tk *tagKeys) error {
	for _, k := range tags.Keys() {
		if err := checkXMLText(k); err != nil {
			return fmt.Errorf("tag key: %w", err)
		}
		v, _ := tags.Get(k)
		id := tk.ids[tagSlot{k, v.Kind()}]
		if v.Kind() == datastructure.KindStringList {
			list, _ := v.AsStringList()
			if list == nil {
				list = []string{}
			}
			for _, item := range list {
				if err := checkXMLText(item); err != nil {
					return fmt.Errorf("tag %q: %w", k, err)
				}
			}
			bb, err := json.Marshal(list)
			if err != nil {
				return fmt.Errorf("tag %q: %w", k, err)
			}
			writeData(el, id, string(bb))
			continue
		}
		text := v.String()
		if err := checkXMLText(text); err != nil {
			return fmt.Errorf("tag %q: %w", k, err)
		}
		writeData(el, id, text)
	}
	return nil
}

// SaveGraphML writes g to path.
func SaveGraphML(path string, g *datastructure.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGraphML(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadGraphML reads a graph written by SaveGraphML.
func LoadGraphML(path string) (*datastructure.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraphML(f)
}

func invalid(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidGraphML, fmt.Sprintf(format, a...))
}

// ReadGraphML parses a document produced by WriteGraphML.
func ReadGraphML(r io.Reader) (*datastructure.Graph, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, invalid("%v", err)
	}
	root := doc.SelectElement("graphml")
	if root == nil {
		return nil, invalid("missing graphml element")
	}

	keys := make(map[string]keyDef)
	for _, el := range root.SelectElements("key") {
		def := keyDef{
			id:     el.SelectAttrValue("id", ""),
			domain: el.SelectAttrValue("for", ""),
			name:   el.SelectAttrValue("attr.name", ""),
			typ:    el.SelectAttrValue("attr.type", "string"),
			list:   el.SelectAttrValue("attr.list", ""),
		}
		if def.id == "" {
			return nil, invalid("key without id")
		}
		keys[def.id] = def
	}

	graphEl := root.SelectElement("graph")
	if graphEl == nil {
		return nil, invalid("missing graph element")
	}

	crs := geo.WGS84
	multi := true
	for _, d := range graphEl.SelectElements("data") {
		var err error
		switch d.SelectAttrValue("key", "") {
		case keyCRS:
			crs, err = geo.ParseCRS(d.Text())
		case keyMulti:
			multi, err = strconv.ParseBool(d.Text())
		}
		if err != nil {
			return nil, invalid("graph attribute: %v", err)
		}
	}

	g := datastructure.NewGraph(crs, multi)
	for _, el := range graphEl.SelectElements("node") {
		n, err := readNode(el, keys)
		if err != nil {
			return nil, err
		}
		g.AddNode(n)
	}

	for _, el := range graphEl.SelectElements("edge") {
		e, hasKey, err := readEdge(el, keys)
		if err != nil {
			return nil, err
		}
		var key datastructure.EdgeKey
		if hasKey {
			key, err = g.AddEdgeWithKey(e)
		} else {
			key, err = g.AddEdge(e)
		}
		if err != nil {
			return nil, invalid("%v", err)
		}
		if e.Length < 0 {
			stored, _ := g.Edge(key)
			stored.Length = geo.LineLength(stored.Geometry, crs)
		}
	}
	return g, nil
}

func readNode(el *etree.Element, keys map[string]keyDef) (datastructure.Node, error) {
	rawID := el.SelectAttrValue("id", "")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return datastructure.Node{}, invalid("node id %q", rawID)
	}
	n := datastructure.Node{ID: id, Tags: datastructure.NewTags()}

	var hasX, hasY bool
	for _, d := range el.SelectElements("data") {
		def, ok := keys[d.SelectAttrValue("key", "")]
		if !ok {
			return n, invalid("node %d: undeclared key %q", id, d.SelectAttrValue("key", ""))
		}
		switch def.id {
		case keyX:
			n.X, err = strconv.ParseFloat(d.Text(), 64)
			hasX = true
		case keyY:
			n.Y, err = strconv.ParseFloat(d.Text(), 64)
			hasY = true
		default:
			var v datastructure.TagValue
			v, err = parseTag(def, d.Text())
			n.Tags.Set(def.name, v)
		}
		if err != nil {
			return n, invalid("node %d %s: %v", id, def.name, err)
		}
	}
	if !hasX || !hasY {
		return n, invalid("node %d has no coordinates", id)
	}
	return n, nil
}

func readEdge(el *etree.Element, keys map[string]keyDef) (datastructure.Edge, bool, error) {
	src, err := strconv.ParseInt(el.SelectAttrValue("source", ""), 10, 64)
	if err != nil {
		return datastructure.Edge{}, false, invalid("edge source %q", el.SelectAttrValue("source", ""))
	}
	dst, err := strconv.ParseInt(el.SelectAttrValue("target", ""), 10, 64)
	if err != nil {
		return datastructure.Edge{}, false, invalid("edge target %q", el.SelectAttrValue("target", ""))
	}
	e := datastructure.Edge{Source: src, Target: dst, Length: -1, Tags: datastructure.NewTags()}

	hasKey := false
	if raw := el.SelectAttrValue("id", ""); raw != "" {
		e.Key, err = strconv.Atoi(raw)
		if err != nil {
			return e, false, invalid("edge key %q", raw)
		}
		hasKey = true
	}

	for _, d := range el.SelectElements("data") {
		def, ok := keys[d.SelectAttrValue("key", "")]
		if !ok {
			return e, false, invalid("edge (%d,%d): undeclared key %q", src, dst, d.SelectAttrValue("key", ""))
		}
		text := d.Text()
		switch def.id {
		case keyLength:
			e.Length, err = strconv.ParseFloat(text, 64)
		case keyOneWay:
			e.OneWay, err = strconv.ParseBool(text)
		case keyReversed:
			e.Reversed, err = strconv.ParseBool(text)
		case keyWayIDs:
			err = json.Unmarshal([]byte(text), &e.WayIDs)
		case keyWarnings:
			err = json.Unmarshal([]byte(text), &e.Warnings)
		case keyGeometry:
			e.Geometry, err = parseLineString(text)
		default:
			var v datastructure.TagValue
			v, err = parseTag(def, text)
			e.Tags.Set(def.name, v)
		}
		if err != nil {
			return e, false, invalid("edge (%d,%d) %s: %v", src, dst, def.name, err)
		}
	}
	return e, hasKey, nil
}

func parseLineString(text string) (orb.LineString, error) {
	g, err := geojson.UnmarshalGeometry([]byte(text))
	if err != nil {
		return nil, err
	}
	ls, ok := g.Coordinates.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("geometry is a %s, not a LineString", g.Type)
	}
	return ls, nil
}

func parseTag(def keyDef, text string) (datastructure.TagValue, error) {
	if def.list != "" {
		var list []string
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return datastructure.TagValue{}, err
		}
		return datastructure.StringListTag(list), nil
	}
	switch def.typ {
	case "boolean":
		b, err := strconv.ParseBool(text)
		return datastructure.BoolTag(b), err
	case "double", "float":
		f, err := strconv.ParseFloat(text, 64)
		return datastructure.NumberTag(f), err
	case "int", "long":
		i, err := strconv.ParseInt(text, 10, 64)
		return datastructure.NumberTag(float64(i)), err
	}
	return datastructure.StringTag(text), nil
}
