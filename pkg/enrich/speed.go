package enrich

import (
	"strconv"
	"strings"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/util"
)

const (
	TagSpeedKph   = "speed_kph"
	TagTravelTime = "travel_time"
	TagBearing    = "bearing"
)

// RoadTypeMaxSpeed2 is the default speed in km/h for a highway class.
func RoadTypeMaxSpeed2(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 100
	case "trunk":
		return 70
	case "primary":
		return 65
	case "secondary":
		return 60
	case "tertiary":
		return 50
	case "unclassified":
		return 30
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 70
	case "trunk_link":
		return 65
	case "primary_link":
		return 60
	case "secondary_link":
		return 50
	case "tertiary_link":
		return 40
	case "living_street":
		return 10
	case "road":
		return 20
	case "track":
		return 15
	default:
		return 40
	}
}

// parseSpeed reads one maxspeed value in km/h.
func parseSpeed(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	factor := 1.0
	switch {
	case strings.HasSuffix(value, "mph"):
		value = strings.TrimSuffix(value, "mph")
		factor = 1.60934
	case strings.HasSuffix(value, "km/h"):
		value = strings.TrimSuffix(value, "km/h")
	case strings.HasSuffix(value, "knots"):
		value = strings.TrimSuffix(value, "knots")
		factor = 1.852
	}
	currSpeed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || currSpeed <= 0 {
		return 0, false
	}
	return currSpeed * factor, true
}

// ParseMaxSpeed reads a maxspeed tag value in km/h. Multiple values separated by
// semicolons are averaged.
func ParseMaxSpeed(value string) (float64, bool) {
	parts := strings.Split(value, ";")
	sum, n := 0.0, 0
	for _, p := range parts {
		if v, ok := parseSpeed(p); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

type SpeedOptions struct {
	// km/h per highway class, used before the graph mean
	HighwaySpeeds map[string]float64
	// km/h for classes with neither an observed nor a configured speed; zero uses RoadTypeMaxSpeed2
	Fallback  float64
	Precision uint
}

func DefaultSpeedOptions() SpeedOptions {
	return SpeedOptions{Precision: 1}
}

// AddEdgeSpeeds tags every edge with speed_kph: its own maxspeed when parseable, otherwise
// the configured speed of its highway class, the mean observed speed of that class, or the fallback.
func AddEdgeSpeeds(g *datastructure.Graph, opts SpeedOptions) *datastructure.Graph {
	out := g.Clone()

	type acc struct {
		sum float64
		n   int
	}
	observed := make(map[string]*acc)
	parsed := make(map[datastructure.EdgeKey]float64)
	for _, e := range out.Edges() {
		speed, ok := ParseMaxSpeed(e.Tags.GetString("maxspeed"))
		if !ok {
			continue
		}
		parsed[e.EdgeKey()] = speed
		hwy := e.Tags.GetString("highway")
		if observed[hwy] == nil {
			observed[hwy] = &acc{}
		}
		observed[hwy].sum += speed
		observed[hwy].n++
	}

	for _, e := range out.Edges() {
		speed, ok := parsed[e.EdgeKey()]
		if !ok {
			hwy := e.Tags.GetString("highway")
			if v, ok := opts.HighwaySpeeds[hwy]; ok {
				speed = v
			} else if a := observed[hwy]; a != nil {
				speed = a.sum / float64(a.n)
			} else if opts.Fallback > 0 {
				speed = opts.Fallback
			} else {
				speed = RoadTypeMaxSpeed2(hwy)
			}
		}
		e.Tags.Set(TagSpeedKph, datastructure.NumberTag(util.RoundFloat(speed, opts.Precision)))
	}
	return out
}

// AddEdgeTravelTimes tags every edge with travel_time in seconds from length and speed_kph.
func AddEdgeTravelTimes(g *datastructure.Graph, precision uint) (*datastructure.Graph, error) {
	out := g.Clone()
	for _, e := range out.Edges() {
		v, ok := e.Tags.Get(TagSpeedKph)
		speed, isNum := v.AsNumber()
		if !ok || !isNum || speed <= 0 {
			return nil, errs.NewErrorf(errs.ErrCodeBadParamInput, "edge %s has no usable %s, add edge speeds first", e.EdgeKey(), TagSpeedKph)
		}
		seconds := e.Length / (speed * 1000 / 3600)
		e.Tags.Set(TagTravelTime, datastructure.NumberTag(util.RoundFloat(seconds, precision)))
	}
	return out, nil
}
