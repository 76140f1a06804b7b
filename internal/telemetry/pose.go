// Package telemetry reads line-oriented joint readings from the serial
// sensor device, derives the arm pose through the kinematic chain and
// publishes the latest snapshot to the consumer.
package telemetry

import (
	"armlink/internal/kinematics"
)

// Provider is the consumer-facing view of a telemetry source: a non-blocking
// snapshot of the most recently published pose.
type Provider interface {
	Current() Pose
}

// Pose is the published arm state consumed by the render loop.
type Pose struct {
	Pitch float64 // degrees, from the base pitch joint
	Roll  float64 // degrees, from the roll joint
	Yaw   float64 // degrees, from the first yaw joint
	X     float64 // tip position from the full six-joint chain
	Y     float64
	Z     float64
}

// RawFrame is one decoded set of raw joint readings. All six slots are
// always present; a joint missing from the wire frame reads as zero.
type RawFrame struct {
	readings [kinematics.NumJoints]int
}

// Reading returns the raw sensor value of the given joint.
func (f RawFrame) Reading(joint int) int {
	return f.readings[joint]
}
