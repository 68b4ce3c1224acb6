package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Bearing is the initial compass bearing from a to b in degrees, in [0, 360).
// Both points are lon/lat.
func Bearing(a, b orb.Point) float64 {
	bearing := orbgeo.Bearing(a, b)
	bearing = math.Mod(bearing+360, 360)
	return bearing
}
