package osmparser

import (
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
)

type direction int

const (
	twoWay direction = iota
	forwardOnly
	backwardOnly
)

var (
	onewayForward = map[string]struct{}{
		"yes":  {},
		"true": {},
		"1":    {},
	}
	onewayBackward = map[string]struct{}{
		"-1":      {},
		"reverse": {},
	}
	onewayNo = map[string]struct{}{
		"no":    {},
		"false": {},
		"0":     {},
	}
)

func isRestricted(value string) bool {
	if value == "no" || value == "restricted" || value == "military" || value == "emergency" || value == "private" || value == "permit" {
		return true
	}
	return false
}

func getReversedOneWay(tags datastructure.Tags) (bool, bool, bool, bool) {
	vehicleForward := tags.GetString("vehicle:forward")
	motorVehicleForward := tags.GetString("motor_vehicle:forward")
	vehicleBackward := tags.GetString("vehicle:backward")
	motorVehicleBackward := tags.GetString("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward), isRestricted(vehicleBackward), isRestricted(motorVehicleBackward)
}

// wayDirection resolves the travel direction of a way from its tags.
func wayDirection(tags datastructure.Tags) direction {
	oneway := tags.GetString("oneway")
	if _, ok := onewayForward[oneway]; ok {
		return forwardOnly
	}
	if _, ok := onewayBackward[oneway]; ok {
		return backwardOnly
	}
	if _, ok := onewayNo[oneway]; ok {
		return twoWay
	}

	switch tags.GetString("junction") {
	case "roundabout", "circular":
		return forwardOnly
	}

	okvf, okmvf, okvb, okmvb := getReversedOneWay(tags)
	noForward := okvf || okmvf
	noBackward := okvb || okmvb
	switch {
	case noForward && !noBackward:
		return backwardOnly
	case noBackward && !noForward:
		return forwardOnly
	}
	return twoWay
}
