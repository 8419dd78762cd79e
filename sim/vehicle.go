/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	vehicle.go: a small quadrotor plant. It implements the loop's estimator
	and motor-output seams so the whole controller can fly on the bench:
	duties go in, integrated rigid-body state comes back out as estimates.
*/

package sim

import (
	"sync"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sensors"
)

const (
	gravity = 9.80665

	// Plant coefficients, sized to behave like the 35g airframe.
	torqueGain   = 30.0   // rad/s^2 per unit normalized torque
	rateDamping  = 5.0    // 1/s
	climbDrag    = 0.8    // 1/s
	defaultHover = 0.6834 // duty that balances gravity at nominal voltage
	defaultVolt  = 3.7
)

// Vehicle is the simulated airframe. Safe for the loop goroutine and a
// test/telemetry goroutine to share.
type Vehicle struct {
	mu sync.Mutex

	dutyFR, dutyFL, dutyRR, dutyRL float64

	roll, pitch, yaw             float64
	rollRate, pitchRate, yawRate float64
	altitude, climb              float64

	hoverDuty float64
	voltage   float64
	overG     bool
	ahrsReset bool
}

// NewVehicle returns a grounded, level vehicle with a full pack.
func NewVehicle() *Vehicle {
	return &Vehicle{hoverDuty: defaultHover, voltage: defaultVolt}
}

// Step integrates the plant forward by dt using the last commanded duties.
func (v *Vehicle) Step(dt float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	thrust := (v.dutyFR + v.dutyFL + v.dutyRR + v.dutyRL) / 4

	// Invert the X mixing matrix to recover the torque commands.
	rollT := v.dutyFL + v.dutyRL - v.dutyFR - v.dutyRR
	pitchT := v.dutyFL + v.dutyFR - v.dutyRL - v.dutyRR
	yawT := v.dutyFR + v.dutyRL - v.dutyFL - v.dutyRR

	v.rollRate += (rollT*torqueGain - rateDamping*v.rollRate) * dt
	v.pitchRate += (pitchT*torqueGain - rateDamping*v.pitchRate) * dt
	v.yawRate += (yawT*torqueGain - rateDamping*v.yawRate) * dt
	v.roll += v.rollRate * dt
	v.pitch += v.pitchRate * dt
	v.yaw += v.yawRate * dt

	// Motor lift scales with pack voltage: a sagging pack needs more duty
	// for the same thrust, which is what the trim model compensates for.
	lift := thrust * v.voltage / defaultVolt
	accel := gravity*(lift-v.hoverDuty)/v.hoverDuty - climbDrag*v.climb
	v.climb += accel * dt
	v.altitude += v.climb * dt
	if v.altitude <= 0 {
		v.altitude = 0
		if v.climb < 0 {
			v.climb = 0
		}
	}
}

// Read implements sensors.Estimator.
func (v *Vehicle) Read() sensors.Sample {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := sensors.Sample{
		Roll: v.roll, Pitch: v.pitch, Yaw: v.yaw,
		RollRate: v.rollRate, PitchRate: v.pitchRate, YawRate: v.yawRate,
		Altitude:  v.altitude,
		ClimbRate: v.climb,
		Voltage:   v.voltage,
		OverG:     v.overG,
		AHRSReset: v.ahrsReset,
	}
	v.ahrsReset = false
	return s
}

// ResetAttitude implements sensors.Estimator: the sim filter re-levels
// instantly and pulses the reset flag for one read.
func (v *Vehicle) ResetAttitude() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roll, v.pitch, v.yaw = 0, 0, 0
	v.rollRate, v.pitchRate, v.yawRate = 0, 0, 0
	v.ahrsReset = true
}

// SetDutyFrontRight implements control.MotorOutput.
func (v *Vehicle) SetDutyFrontRight(d float64) { v.setDuty(&v.dutyFR, d) }

// SetDutyFrontLeft implements control.MotorOutput.
func (v *Vehicle) SetDutyFrontLeft(d float64) { v.setDuty(&v.dutyFL, d) }

// SetDutyRearRight implements control.MotorOutput.
func (v *Vehicle) SetDutyRearRight(d float64) { v.setDuty(&v.dutyRR, d) }

// SetDutyRearLeft implements control.MotorOutput.
func (v *Vehicle) SetDutyRearLeft(d float64) { v.setDuty(&v.dutyRL, d) }

func (v *Vehicle) setDuty(p *float64, d float64) {
	v.mu.Lock()
	*p = d
	v.mu.Unlock()
}

// Duties returns the last commanded motor duties.
func (v *Vehicle) Duties() (fr, fl, rr, rl float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dutyFR, v.dutyFL, v.dutyRR, v.dutyRL
}

// Altitude returns the true plant altitude.
func (v *Vehicle) Altitude() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.altitude
}

// SetVoltage sets the simulated pack voltage.
func (v *Vehicle) SetVoltage(volts float64) {
	v.mu.Lock()
	v.voltage = volts
	v.mu.Unlock()
}

// SetOverG forces the over-acceleration flag.
func (v *Vehicle) SetOverG(on bool) {
	v.mu.Lock()
	v.overG = on
	v.mu.Unlock()
}

// Disturb kicks the attitude, for disturbance-rejection tests.
func (v *Vehicle) Disturb(rollRate, pitchRate float64) {
	v.mu.Lock()
	v.rollRate += rollRate
	v.pitchRate += pitchRate
	v.mu.Unlock()
}
