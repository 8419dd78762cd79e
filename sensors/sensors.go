/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	sensors.go: collaborator interfaces for the control core. The actual
	IMU/AHRS fusion, ranging driver and battery ADC live behind these; the
	loop only ever sees filtered engineering-unit estimates.
*/

package sensors

// Sample is one tick of filtered estimates. Angles in rad, rates in rad/s,
// altitude in m, climb rate in m/s, voltage in V.
type Sample struct {
	Roll, Pitch, Yaw             float64
	RollRate, PitchRate, YawRate float64
	Altitude                     float64
	ClimbRate                    float64
	Voltage                      float64
	OverG                        bool
	// AHRSReset is held true while the attitude filter re-initializes;
	// the loop re-zeroes its integrators on the rising edge.
	AHRSReset bool
}

// Estimator supplies one Sample per control tick. Read must not block; the
// implementation returns the freshest available estimate.
type Estimator interface {
	Read() Sample
	// ResetAttitude re-initializes the attitude filter. The loop calls it
	// when leaving Wait so the integrators start from a clean estimate.
	ResetAttitude()
}

// Button is the edge-triggered arm input. Pressed reports the raw level;
// debouncing happens in the driver, edge detection in the loop.
type Button interface {
	Pressed() bool
}
