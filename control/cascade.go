/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	cascade.go: the cascaded controllers. Roll and pitch run an angle-outer
	/ rate-inner pair, yaw is rate-only, altitude feeds a climb-rate loop
	that rides on the hover trim duty.
*/

package control

import (
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/pid"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sensors"
)

// Cascade owns the six PID instances and the output smoothing filters.
type Cascade struct {
	cfg *Config

	rollRate  *pid.PID
	pitchRate *pid.PID
	yawRate   *pid.PID

	rollAngle  *pid.PID
	pitchAngle *pid.PID

	alt   *pid.PID
	climb *pid.PID

	thrustFilt *pid.Filter
	dutyFR     *pid.Filter
	dutyFL     *pid.Filter
	dutyRR     *pid.Filter
	dutyRL     *pid.Filter
}

// NewCascade builds the six loops from the loaded gain sets.
func NewCascade(cfg *Config) *Cascade {
	return &Cascade{
		cfg:        cfg,
		rollRate:   pid.New(cfg.RollRate),
		pitchRate:  pid.New(cfg.PitchRate),
		yawRate:    pid.New(cfg.YawRate),
		rollAngle:  pid.New(cfg.RollAngle),
		pitchAngle: pid.New(cfg.PitchAngle),
		alt:        pid.New(cfg.Altitude),
		climb:      pid.New(cfg.Climb),
		thrustFilt: pid.NewFilter(cfg.ThrustFilterTC),
		dutyFR:     pid.NewFilter(cfg.DutyFilterTC),
		dutyFL:     pid.NewFilter(cfg.DutyFilterTC),
		dutyRR:     pid.NewFilter(cfg.DutyFilterTC),
		dutyRL:     pid.NewFilter(cfg.DutyFilterTC),
	}
}

// Reset zeroes every loop and filter. Called on arming, on AHRS reset and
// whenever the sequencer parks the vehicle.
func (c *Cascade) Reset() {
	c.rollRate.Reset()
	c.pitchRate.Reset()
	c.yawRate.Reset()
	c.rollAngle.Reset()
	c.pitchAngle.Reset()
	c.alt.Reset()
	c.climb.Reset()
	c.thrustFilt.Reset()
	c.dutyFR.Reset()
	c.dutyFL.Reset()
	c.dutyRR.Reset()
	c.dutyRL.Reset()
}

// TimingFaults sums the per-loop scheduler-fault counters.
func (c *Cascade) TimingFaults() uint32 {
	return c.rollRate.TimingFaults() + c.pitchRate.TimingFaults() +
		c.yawRate.TimingFaults() + c.rollAngle.TimingFaults() +
		c.pitchAngle.TimingFaults() + c.alt.TimingFaults() +
		c.climb.TimingFaults()
}

// AngleStep runs the outer loops: altitude to climb-rate reference, angle
// commands to rate references. During landing the climb reference is the
// fixed descent rate instead of the altitude loop output.
func (c *Cascade) AngleStep(st *ControlState, s sensors.Sample, landing bool, dt float64) {
	if st.ThrustBias < c.cfg.MotorOnThreshold {
		c.rollAngle.Reset()
		c.pitchAngle.Reset()
		st.RollRateRef, st.PitchRateRef = 0, 0
		return
	}

	st.AltRef = c.cfg.ClampAltRef(st.AltRef)
	if landing {
		st.ClimbRateRef = -c.cfg.LandingDescentRate
	} else {
		ref := c.alt.Update(st.AltRef, s.Altitude, dt)
		if ref > c.cfg.MaxClimbRate {
			ref = c.cfg.MaxClimbRate
		} else if ref < -c.cfg.MaxClimbRate {
			ref = -c.cfg.MaxClimbRate
		}
		st.ClimbRateRef = ref
	}

	st.RollAngleRef = clampAngle(st.RollAngleCmd, c.cfg.MaxAngle)
	st.PitchAngleRef = clampAngle(st.PitchAngleCmd, c.cfg.MaxAngle)

	st.RollRateRef = c.rollAngle.Update(st.RollAngleRef, s.Roll-st.RollOffset, dt) + c.cfg.RollRateBias
	st.PitchRateRef = c.pitchAngle.Update(st.PitchAngleRef, s.Pitch-st.PitchOffset, dt) + c.cfg.PitchRateBias
}

// RateStep runs the inner loops and the mixer, returning filtered duties.
// The mixer's saturation report gates integral accumulation on the next
// tick (anti-windup by suspension, not clamping).
func (c *Cascade) RateStep(st *ControlState, s sensors.Sample, landing bool, dt float64) Duties {
	if st.ThrustBias < c.cfg.MotorOnThreshold {
		c.resetRateLoops(st)
		return Duties{}
	}

	st.RollRateCmd = c.rollRate.Update(st.RollRateRef, s.RollRate, dt)
	st.PitchRateCmd = c.pitchRate.Update(st.PitchRateRef, s.PitchRate, dt)
	st.YawRateCmd = c.yawRate.Update(st.YawRateRef, s.YawRate, dt)

	thrust := c.thrustFilt.Update(st.ThrustBias+c.climb.Update(st.ClimbRateRef, s.ClimbRate, dt), dt)
	if !landing {
		// Altitude hold rides within a narrow band around the trim duty.
		if hi := st.ThrustBias * 1.15; thrust > hi {
			thrust = hi
		}
		if lo := st.ThrustBias * 0.85; thrust < lo {
			thrust = lo
		}
	}
	st.ThrustCmd = thrust

	d, saturated := Mix(thrust, st.RollRateCmd, st.PitchRateCmd, st.YawRateCmd)
	d.FrontRight = c.dutyFR.Update(d.FrontRight, dt)
	d.FrontLeft = c.dutyFL.Update(d.FrontLeft, dt)
	d.RearRight = c.dutyRR.Update(d.RearRight, dt)
	d.RearLeft = c.dutyRL.Update(d.RearLeft, dt)

	st.Saturated = saturated
	c.rollRate.SetHold(saturated)
	c.pitchRate.SetHold(saturated)
	c.yawRate.SetHold(saturated)
	c.climb.SetHold(saturated)

	return d
}

func (c *Cascade) resetRateLoops(st *ControlState) {
	c.rollRate.Reset()
	c.pitchRate.Reset()
	c.yawRate.Reset()
	c.alt.Reset()
	c.climb.Reset()
	c.thrustFilt.Reset()
	c.dutyFR.Reset()
	c.dutyFL.Reset()
	c.dutyRR.Reset()
	c.dutyRL.Reset()
	st.RollRateRef, st.PitchRateRef, st.YawRateRef = 0, 0, 0
	st.RollRateCmd, st.PitchRateCmd, st.YawRateCmd = 0, 0, 0
	st.ThrustCmd = 0
	st.Saturated = false
}

func clampAngle(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
