/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	mixer.go: X-configuration motor mixing. Pure function; the clamp here is
	the last line of actuator defense and saturates rather than wrapping.
*/

package control

// Duties is the four normalized motor outputs.
type Duties struct {
	FrontRight float64 `json:"front_right"`
	FrontLeft  float64 `json:"front_left"`
	RearRight  float64 `json:"rear_right"`
	RearLeft   float64 `json:"rear_left"`
}

// Mix maps thrust plus roll/pitch/yaw torque commands onto the four motors
// of an X quad. Outputs are clamped to [0,1]; saturated reports whether any
// clamp engaged so the rate loops can suspend integration.
func Mix(thrust, roll, pitch, yaw float64) (d Duties, saturated bool) {
	d.FrontRight = thrust + (-roll+pitch+yaw)*0.25
	d.FrontLeft = thrust + (roll+pitch-yaw)*0.25
	d.RearRight = thrust + (-roll-pitch-yaw)*0.25
	d.RearLeft = thrust + (roll-pitch+yaw)*0.25

	d.FrontRight, saturated = clampDuty(d.FrontRight, saturated)
	d.FrontLeft, saturated = clampDuty(d.FrontLeft, saturated)
	d.RearRight, saturated = clampDuty(d.RearRight, saturated)
	d.RearLeft, saturated = clampDuty(d.RearLeft, saturated)
	return d, saturated
}

func clampDuty(v float64, sat bool) (float64, bool) {
	if v < 0 {
		return 0, true
	}
	if v > 1 {
		return 1, true
	}
	return v, sat
}
