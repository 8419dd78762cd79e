/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	state.go: the per-tick control state aggregate. Mutated by exactly one
	owner (the scheduler-driven tick); telemetry readers take snapshots
	between ticks through Loop.Snapshot().
*/

package control

// ControlState holds the current references, commands and outputs of the
// control loop. Engineering units throughout: rad and rad/s for attitude,
// meters and m/s for altitude, normalized [0,1] for thrust and duty.
type ControlState struct {
	State string `json:"state"`

	// Scheduler timing.
	Elapsed  float64 `json:"elapsed"`  // s since the loop armed its clock
	Interval float64 `json:"interval"` // measured dt of the last tick, s
	Ticks    uint64  `json:"ticks"`

	// References.
	RollRateRef   float64 `json:"roll_rate_ref"`
	PitchRateRef  float64 `json:"pitch_rate_ref"`
	YawRateRef    float64 `json:"yaw_rate_ref"`
	RollAngleRef  float64 `json:"roll_angle_ref"`
	PitchAngleRef float64 `json:"pitch_angle_ref"`
	AltRef        float64 `json:"alt_ref"`
	ClimbRateRef  float64 `json:"climb_rate_ref"`

	// Commands out of the cascade.
	RollAngleCmd  float64 `json:"roll_angle_cmd"`
	PitchAngleCmd float64 `json:"pitch_angle_cmd"`
	RollRateCmd   float64 `json:"roll_rate_cmd"`  // torque, normalized
	PitchRateCmd  float64 `json:"pitch_rate_cmd"` // torque, normalized
	YawRateCmd    float64 `json:"yaw_rate_cmd"`   // torque, normalized
	ThrustBias    float64 `json:"thrust_bias"`    // hover trim plus takeoff ramp
	ThrustCmd     float64 `json:"thrust_cmd"`

	// Motor duties after mixing, filtering and clamping.
	DutyFrontRight float64 `json:"duty_front_right"`
	DutyFrontLeft  float64 `json:"duty_front_left"`
	DutyRearRight  float64 `json:"duty_rear_right"`
	DutyRearLeft   float64 `json:"duty_rear_left"`

	// Calibration offsets established during the Calibration phase.
	RollOffset  float64 `json:"roll_offset"`
	PitchOffset float64 `json:"pitch_offset"`
	YawOffset   float64 `json:"yaw_offset"`

	// Measured values mirrored for telemetry.
	Roll       float64 `json:"roll"`
	Pitch      float64 `json:"pitch"`
	Altitude   float64 `json:"altitude"`
	ClimbRate  float64 `json:"climb_rate"`
	VoltageAvg float64 `json:"voltage_avg"`

	// Health.
	Saturated      bool   `json:"saturated"`
	OverrideActive bool   `json:"override_active"`
	TimingFaults   uint32 `json:"timing_faults"`
	StaleDrops     uint32 `json:"stale_drops"`
	LowVoltage     bool   `json:"low_voltage"`
	AltitudeLimit  bool   `json:"altitude_limit"`
}

// zeroOutputs clears every actuation command. Called when the sequencer
// parks the vehicle.
func (s *ControlState) zeroOutputs() {
	s.RollRateRef, s.PitchRateRef, s.YawRateRef = 0, 0, 0
	s.RollAngleRef, s.PitchAngleRef = 0, 0
	s.ClimbRateRef = 0
	s.RollRateCmd, s.PitchRateCmd, s.YawRateCmd = 0, 0, 0
	s.RollAngleCmd, s.PitchAngleCmd = 0, 0
	s.ThrustBias, s.ThrustCmd = 0, 0
	s.DutyFrontRight, s.DutyFrontLeft = 0, 0
	s.DutyRearRight, s.DutyRearLeft = 0, 0
	s.Saturated = false
}
