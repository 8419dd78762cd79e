/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	gains.go: control-loop configuration. Everything the loop needs to fly
	lives here and is loaded once at startup; there is no live tuning path.
*/

package control

import (
	"math"
	"time"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/pid"
)

// Config carries the PID gain sets and the flight envelope. Values are
// loaded from the settings file into an immutable copy held by the Loop;
// changing gains requires a reload, not a live write.
type Config struct {
	// Rate loop gains (inner).
	RollRate  pid.GainSet `json:"roll_rate"`
	PitchRate pid.GainSet `json:"pitch_rate"`
	YawRate   pid.GainSet `json:"yaw_rate"`

	// Angle loop gains (outer).
	RollAngle  pid.GainSet `json:"roll_angle"`
	PitchAngle pid.GainSet `json:"pitch_angle"`

	// Altitude loop: altitude error to climb-rate reference, climb-rate
	// error to thrust correction.
	Altitude pid.GainSet `json:"altitude"`
	Climb    pid.GainSet `json:"climb"`

	// Calibration and battery monitoring.
	AverageNum        int     `json:"average_num"`         // offset/voltage average window, ticks
	PowerLimit        float64 `json:"power_limit"`         // volts
	UnderVoltageCount int     `json:"under_voltage_count"` // consecutive ticks below PowerLimit

	// Altitude envelope.
	AltLimit         float64 `json:"alt_limit"`   // hard ceiling, m
	AltRefMin        float64 `json:"alt_ref_min"` // m
	AltRefMax        float64 `json:"alt_ref_max"` // m
	HoverAltitude    float64 `json:"hover_altitude"`
	TakeoffTolerance float64 `json:"takeoff_tolerance"` // hover reached within this of the reference

	// Attitude envelope. The bias terms correct per-airframe mounting
	// offsets; they add to the external angle commands and the rate
	// references.
	MaxAngle       float64 `json:"max_angle"` // rad, clamp on angle references
	RollAngleBias  float64 `json:"roll_angle_bias"`
	PitchAngleBias float64 `json:"pitch_angle_bias"`
	RollRateBias   float64 `json:"roll_rate_bias"`
	PitchRateBias  float64 `json:"pitch_rate_bias"`

	// Vertical velocity envelope.
	MaxClimbRate       float64 `json:"max_climb_rate"`       // m/s, clamp on the climb reference
	LandingDescentRate float64 `json:"landing_descent_rate"` // m/s, positive down
	TouchdownAltitude  float64 `json:"touchdown_altitude"`   // m, below this landing is done

	// Hover thrust model: trim duty = TrimSlope*voltage + TrimIntercept.
	// The bias counters gravity at nominal mass; it is measured per
	// airframe, not computed.
	TrimSlope     float64 `json:"trim_slope"`
	TrimIntercept float64 `json:"trim_intercept"`

	// Takeoff thrust ramp, in ticks. The first half of the ramp is capped
	// at the trim duty for RampHoldoffVoltage so a sagging pack can't
	// over-throttle the initial climb.
	RampTicks          int     `json:"ramp_ticks"`
	RampHoldoffVoltage float64 `json:"ramp_holdoff_voltage"`

	// Actuation.
	MotorOnThreshold float64 `json:"motor_on_threshold"` // below this thrust the loops stay reset
	ThrustFilterTC   float64 `json:"thrust_filter_tc"`   // s
	DutyFilterTC     float64 `json:"duty_filter_tc"`     // s

	// Sequencing.
	SettleTicks    int           `json:"settle_ticks"`     // Wait-state AHRS settle before arming
	MaxFlightTicks int           `json:"max_flight_ticks"` // forced landing after this many flying ticks
	CommandTimeout time.Duration `json:"command_timeout"`  // override staleness bound
}

// DefaultConfig returns the tuning for the stock StampFly airframe.
func DefaultConfig() Config {
	return Config{
		RollRate:  pid.GainSet{Kp: 0.65, Ti: 0.7, Td: 0.01, Eta: 0.125},
		PitchRate: pid.GainSet{Kp: 0.95, Ti: 0.7, Td: 0.025, Eta: 0.125},
		YawRate:   pid.GainSet{Kp: 3.0, Ti: 0.8, Td: 0.01, Eta: 0.125},

		RollAngle:  pid.GainSet{Kp: 5.0, Ti: 4.0, Td: 0.04, Eta: 0.125},
		PitchAngle: pid.GainSet{Kp: 5.0, Ti: 4.0, Td: 0.04, Eta: 0.125},

		Altitude: pid.GainSet{Kp: 0.38, Ti: 10.0, Td: 0.5, Eta: 0.125},
		Climb:    pid.GainSet{Kp: 0.08, Ti: 0.95, Td: 0.08, Eta: 0.125},

		AverageNum:        800,
		PowerLimit:        3.34,
		UnderVoltageCount: 100,

		AltLimit:         2.0,
		AltRefMin:        0.05,
		AltRefMax:        1.8,
		HoverAltitude:    0.5,
		TakeoffTolerance: 0.05,

		MaxAngle: 30.0 * math.Pi / 180.0,

		MaxClimbRate:       0.8,
		LandingDescentRate: 0.15,
		TouchdownAltitude:  0.1,

		TrimSlope:     -0.2448,
		TrimIntercept: 1.5892,

		RampTicks:          1000,
		RampHoldoffVoltage: 3.8,

		MotorOnThreshold: 0.1,
		ThrustFilterTC:   0.01,
		DutyFilterTC:     0.003,

		SettleTicks:    1200, // 3s at 400Hz
		MaxFlightTicks: 48000, // 120s at 400Hz
		CommandTimeout: 200 * time.Millisecond,
	}
}

// TrimDuty is the normalized duty that holds the airframe in hover at the
// given battery voltage.
func (c *Config) TrimDuty(voltage float64) float64 {
	d := c.TrimSlope*voltage + c.TrimIntercept
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	return d
}

// ClampAltRef bounds an altitude reference to the configured envelope.
func (c *Config) ClampAltRef(ref float64) float64 {
	if ref < c.AltRefMin {
		return c.AltRefMin
	}
	if ref > c.AltRefMax {
		return c.AltRefMax
	}
	return ref
}
