package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHaversineDistance(t *testing.T) {
	// one degree of latitude
	d := CalculateHaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111.19, d, 0.01)

	m := GreatCircleDistance(orb.Point{0, 0}, orb.Point{0, 1})
	assert.InDelta(t, 111195.08, m, 0.5)
	assert.Equal(t, 0.0, GreatCircleDistance(orb.Point{10, 10}, orb.Point{10, 10}))
}

func TestDistanceByCRS(t *testing.T) {
	a, b := orb.Point{0, 0}, orb.Point{3, 4}
	assert.Equal(t, 5.0, Distance(a, b, UTM(33, true)))
	assert.Greater(t, Distance(a, b, WGS84), 500000.0)

	// web mercator units shrink to ground meters by the sphere ratio at the equator
	ls := orb.LineString{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11.0*earthRadiusM/orb.EarthRadius, LineLength(ls, WebMercator), 1e-6)
}

func TestWebMercatorLengthIsGroundLength(t *testing.T) {
	ll := orb.LineString{{10, 60}, {10.018, 60}}
	ground := LineLength(ll, WGS84)
	assert.InDelta(t, 1000.76, ground, 0.05)

	merc := orb.LineString{project.WGS84.ToMercator(ll[0]), project.WGS84.ToMercator(ll[1])}
	assert.InDelta(t, ground, LineLength(merc, WebMercator), 1e-6)
	assert.InDelta(t, ground, Distance(merc[0], merc[1], WebMercator), 1e-6)
	// the raw mercator span is twice the ground length at 60 degrees
	assert.Greater(t, merc[1][0]-merc[0][0], 1.9*ground)

	zone := UTMZoneForLon(10)
	utm := orb.LineString{ToUTM(ll[0], zone, true), ToUTM(ll[1], zone, true)}
	assert.InEpsilon(t, ground, LineLength(utm, UTM(zone, true)), 0.005)
}

func TestParseCRS(t *testing.T) {
	tests := []struct {
		in      string
		want    CRS
		wantErr bool
	}{
		{in: "EPSG:4326", want: WGS84},
		{in: "epsg:32633", want: UTM(33, true)},
		{in: "3857", want: WebMercator},
		{in: "EPSG:900913", want: WebMercator},
		{in: "ESRI:102003", wantErr: true},
		{in: "EPSG:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCRS(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUTMZone(t *testing.T) {
	zone, north, ok := CRS{EPSG: 32748}.UTMZone()
	assert.True(t, ok)
	assert.Equal(t, 48, zone)
	assert.False(t, north)

	_, _, ok = WGS84.UTMZone()
	assert.False(t, ok)
	_, _, ok = CRS{EPSG: 32661}.UTMZone()
	assert.False(t, ok)

	assert.Equal(t, 31, UTMZoneForLon(0.5))
	assert.Equal(t, 1, UTMZoneForLon(-180))
	assert.Equal(t, 60, UTMZoneForLon(180))
	assert.Equal(t, "EPSG:32631", UTM(31, true).String())
	assert.False(t, WGS84.IsProjected())
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0.0, Bearing(orb.Point{0, 0}, orb.Point{0, 1}), 1e-9)
	assert.InDelta(t, 90.0, Bearing(orb.Point{0, 0}, orb.Point{1, 0}), 1e-9)
	assert.InDelta(t, 270.0, Bearing(orb.Point{0, 0}, orb.Point{-1, 0}), 1e-9)
	assert.InDelta(t, 180.0, Bearing(orb.Point{0, 1}, orb.Point{0, 0}), 1e-9)
}

func TestDistanceToSegment(t *testing.T) {
	a, b := orb.Point{106.80, -6.20}, orb.Point{106.82, -6.20}
	p := orb.Point{106.81, -6.201}

	d := DistanceToSegment(p, a, b)
	assert.InDelta(t, 111.2, d, 0.5)

	proj := ProjectPointToSegment(p, a, b)
	assert.InDelta(t, 106.81, proj.Lon(), 1e-6)
	assert.InDelta(t, -6.2, proj.Lat(), 1e-6)

	// beyond the segment end the closest point is the endpoint
	far := orb.Point{106.83, -6.20}
	assert.InDelta(t, GreatCircleDistance(far, b), DistanceToSegment(far, a, b), 1e-3)

	dl, idx := DistanceToLine(p, orb.LineString{{106.70, -6.30}, a, b})
	assert.Equal(t, 1, idx)
	assert.InDelta(t, d, dl, 1e-9)
}

func TestConcatAndReverse(t *testing.T) {
	a := orb.LineString{{0, 0}, {1, 0}}
	b := orb.LineString{{1, 0}, {2, 0}}
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}}, Concat(a, b))
	assert.Equal(t, orb.LineString{{1, 0}, {0, 0}}, Reversed(a))
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}}, a)
}

func TestSelfIntersects(t *testing.T) {
	for _, crs := range []CRS{WGS84, UTM(49, false)} {
		t.Run(crs.String(), func(t *testing.T) {
			assert.False(t, SelfIntersects(orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 1}}, crs))
			// figure eight
			assert.True(t, SelfIntersects(orb.LineString{{0, 0}, {2, 2}, {2, 0}, {0, 2}}, crs))
			// closed square
			assert.False(t, SelfIntersects(orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, crs))
			// revisits a vertex without crossing
			assert.True(t, SelfIntersects(orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 0}, {-1, 1}}, crs))
		})
	}
}

func TestValidLatLon(t *testing.T) {
	assert.True(t, ValidLatLon(-6.2, 106.8))
	assert.False(t, ValidLatLon(91, 0))
	assert.False(t, ValidLatLon(math.NaN(), 0))
	assert.False(t, ValidLatLon(0, math.Inf(1)))
	assert.Equal(t, orb.Point{1, 1}, Centroid([]orb.Point{{0, 0}, {2, 2}}))
	assert.True(t, PointsEqual(orb.Point{1, 1}, orb.Point{1 + 1e-10, 1}, 1e-9))
}

func TestUTMRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		p     orb.Point
		zone  int
		north bool
	}{
		{name: "yogyakarta", p: orb.Point{110.3695, -7.7956}, zone: 49, north: false},
		{name: "berlin", p: orb.Point{13.4050, 52.5200}, zone: 33, north: true},
		{name: "zone edge", p: orb.Point{-119.99, 34.0}, zone: 11, north: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xy := ToUTM(tt.p, tt.zone, tt.north)
			back := FromUTM(xy, tt.zone, tt.north)
			assert.InDelta(t, tt.p.Lon(), back.Lon(), 1e-9)
			assert.InDelta(t, tt.p.Lat(), back.Lat(), 1e-9)
		})
	}

	// central meridian on the equator
	xy := ToUTM(orb.Point{3, 0}, 31, true)
	assert.InDelta(t, 500000.0, xy[0], 1e-6)
	assert.InDelta(t, 0.0, xy[1], 1e-6)

	// berlin reference values, zone 33U
	xy = ToUTM(orb.Point{13.4050, 52.5200}, 33, true)
	assert.InDelta(t, 391779.0, xy[0], 2.0)
	assert.InDelta(t, 5820072.0, xy[1], 2.0)
}

func TestPointLineDistance(t *testing.T) {
	ls := orb.LineString{{0, 0}, {10, 0}, {10, 10}}
	d, proj := PointLineDistance(orb.Point{12, 5}, ls, UTM(31, true))
	assert.Equal(t, 2.0, d)
	assert.Equal(t, orb.Point{10, 5}, proj)

	d, proj = PointLineDistance(orb.Point{5, -3}, ls, WebMercator)
	assert.InDelta(t, 3.0*earthRadiusM/orb.EarthRadius, d, 1e-6)
	assert.InDelta(t, 5.0, proj[0], 1e-6)
	assert.InDelta(t, 0.0, proj[1], 1e-6)

	geog := orb.LineString{{110.36, -7.80}, {110.37, -7.80}}
	d, proj = PointLineDistance(orb.Point{110.365, -7.801}, geog, WGS84)
	assert.InDelta(t, 111.2, d, 0.5)
	assert.InDelta(t, 110.365, proj.Lon(), 1e-6)
}

func TestSearchBoxesContainRadius(t *testing.T) {
	p := orb.Point{110.36, -7.80}
	boxes := SearchBoxes(p, 100, WGS84)
	require.Len(t, boxes, 1)
	east := orb.Point{110.36 + 100/(111195.08*math.Cos(7.8*math.Pi/180)), -7.80}
	assert.InDelta(t, 100, GreatCircleDistance(p, east), 0.1)
	assert.True(t, boxes[0].Contains(east))
	assert.True(t, boxes[0].Contains(orb.Point{110.36, -7.80 + 0.0009}))

	boxes = SearchBoxes(orb.Point{500, 500}, 10, UTM(49, false))
	assert.Equal(t, []orb.Bound{{Min: orb.Point{490, 490}, Max: orb.Point{510, 510}}}, boxes)

	// 1000 ground meters at 60 degrees span about 2000 mercator units
	center := orb.Point{10, 60}
	m := project.WGS84.ToMercator(center)
	boxes = SearchBoxes(m, 1000, WebMercator)
	require.Len(t, boxes, 1)
	for _, ll := range []orb.Point{
		{10 + 1000/(111195.08*0.5), 60},
		{10, 60 + 1000/111195.08},
		{10, 60 - 1000/111195.08},
	} {
		assert.InDelta(t, 1000, GreatCircleDistance(center, ll), 1)
		assert.True(t, boxes[0].Contains(project.WGS84.ToMercator(ll)))
	}
}

func TestSearchBoxesAntimeridian(t *testing.T) {
	boxes := SearchBoxes(orb.Point{179.9999, 0}, 100, WGS84)
	require.Len(t, boxes, 2)
	across := orb.Point{-179.9999, 0}
	assert.Less(t, GreatCircleDistance(orb.Point{179.9999, 0}, across), 100.0)
	assert.True(t, boxes[0].Contains(orb.Point{179.99995, 0}))
	assert.False(t, boxes[0].Contains(across))
	assert.True(t, boxes[1].Contains(across))

	boxes = SearchBoxes(orb.Point{-179.9999, 0}, 100, WGS84)
	require.Len(t, boxes, 2)
	assert.True(t, boxes[1].Contains(orb.Point{179.9999, 0}))

	// near the pole the longitude span covers the whole circle
	boxes = SearchBoxes(orb.Point{0, 89.9999}, 1000, WGS84)
	require.Len(t, boxes, 1)
	assert.Equal(t, -180.0, boxes[0].Min.Lon())
	assert.Equal(t, 180.0, boxes[0].Max.Lon())
}
