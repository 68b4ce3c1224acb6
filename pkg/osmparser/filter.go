package osmparser

import (
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
)

// WayFilter decides whether a way takes part in the graph.
type WayFilter func(tags datastructure.Tags) bool

var (
	skipHighway = map[string]struct{}{
		"footway":                {},
		"construction":           {},
		"cycleway":               {},
		"path":                   {},
		"pedestrian":             {},
		"busway":                 {},
		"steps":                  {},
		"bridleway":              {},
		"corridor":               {},
		"street_lamp":            {},
		"bus_stop":               {},
		"crossing":               {},
		"cyclist_waiting_aid":    {},
		"elevator":               {},
		"emergency_bay":          {},
		"emergency_access_point": {},
		"give_way":               {},
		"phone":                  {},
		"ladder":                 {},
		"milestone":              {},
		"passing_place":          {},
		"platform":               {},
		"speed_camera":           {},
		"track":                  {},
		"bus_guideway":           {},
		"speed_display":          {},
		"stop":                   {},
		"toll_gantry":            {},
		"traffic_mirror":         {},
		"traffic_signals":        {},
		"trailhead":              {},
		"proposed":               {},
		"abandoned":              {},
		"raceway":                {},
	}

	privateAccess = map[string]struct{}{
		"private": {},
		"no":      {},
	}
)

// DriveFilter keeps ways a motor vehicle can use.
func DriveFilter(tags datastructure.Tags) bool {
	if _, ok := privateAccess[tags.GetString("access")]; ok {
		return false
	}
	if tags.GetString("area") == "yes" {
		return false
	}
	highway := tags.GetString("highway")
	junction := tags.GetString("junction")
	if highway != "" {
		if _, ok := skipHighway[highway]; !ok {
			return true
		}
	} else if tags.GetString("route") == "road" {
		return true
	} else if junction != "" {
		return true
	}
	return false
}

// AllFilter keeps every way carrying a highway tag.
func AllFilter(tags datastructure.Tags) bool {
	return tags.Has("highway") && tags.GetString("area") != "yes"
}

// FilterByName returns the filter for a network type name.
func FilterByName(name string) (WayFilter, bool) {
	switch name {
	case "drive":
		return DriveFilter, true
	case "all":
		return AllFilter, true
	case "", "none":
		return nil, true
	}
	return nil, false
}
