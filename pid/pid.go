/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	pid.go: Two-degree-of-freedom PID primitive for the 400Hz attitude and
	altitude loops. Gains use the (Kp, Ti, Td, Eta) form of the StampFly
	controller: Ti is the integral time constant, Td the derivative time
	constant and Eta the derivative low-pass coefficient.
*/

package pid

import "math"

// MaxInterval is the sanity bound on a control interval. Anything above it
// means the scheduler stalled; integrating across the gap would corrupt the
// integral and derivative state, so the update is rejected instead.
const MaxInterval = 0.1 // seconds

// GainSet is one axis worth of tuning. Loaded once at startup, never mutated.
type GainSet struct {
	Kp  float64 `json:"kp"`
	Ti  float64 `json:"ti"`
	Td  float64 `json:"td"`
	Eta float64 `json:"eta"` // 0 < Eta <= 1. Eta=1 disables derivative filtering.
}

// PID holds the mutable per-axis state: the integrator, the filtered
// derivative and the previous measurement. One instance per controlled axis.
type PID struct {
	gains GainSet

	integral float64
	dFilt    float64
	lastMeas float64
	lastOut  float64
	primed   bool

	hold bool // integration suspended while the actuator is saturated

	timingFaults uint32
}

// New returns a PID with zeroed state. Gains are fixed for the life of the
// instance; retuning means building a new one from a reloaded config.
func New(g GainSet) *PID {
	return &PID{gains: g}
}

// Gains returns the gain set the instance was built with.
func (p *PID) Gains() GainSet {
	return p.gains
}

// Update runs one control step: error is reference minus measurement, the
// integral accumulates Kp*err*dt/Ti, and the derivative acts on the
// measurement (not the error) so reference steps don't kick the output.
//
// A non-positive or wildly large dt is a scheduler fault: the previous
// output is held, the fault counter is bumped and no state is touched.
func (p *PID) Update(reference, measurement, dt float64) float64 {
	if dt <= 0 || dt > MaxInterval {
		p.timingFaults++
		return p.lastOut
	}

	err := reference - measurement

	out := p.gains.Kp*err + p.integral + p.gains.Kp*p.gains.Td*p.dFilt

	// Accumulate after computing the output so the first step after a
	// reset is the pure proportional response.
	if !p.hold && p.gains.Ti > 0 {
		p.integral += p.gains.Kp * err * dt / p.gains.Ti
	}

	// Derivative on measurement. The sign flip makes the term oppose
	// motion, matching d(err)/dt for a constant reference.
	var raw float64
	if p.primed {
		raw = -(measurement - p.lastMeas) / dt
	}
	if p.gains.Eta >= 1 {
		p.dFilt = raw
	} else {
		p.dFilt += p.gains.Eta * (raw - p.dFilt)
	}

	p.lastMeas = measurement
	p.primed = true

	if math.IsNaN(out) || math.IsInf(out, 0) {
		// Should be unreachable with finite inputs; hold rather than
		// propagate garbage to the mixer.
		p.timingFaults++
		return p.lastOut
	}
	p.lastOut = out
	return out
}

// SetHold suspends (true) or resumes (false) integral accumulation. The loop
// sets it while the mixer reports saturated duty so the integrator does not
// wind up against a clamped actuator.
func (p *PID) SetHold(hold bool) {
	p.hold = hold
}

// Reset zeroes the integrator, the derivative filter and the priming state.
// Must be called when the owning loop is re-armed; stale state here shows up
// as a throttle transient on the first airborne tick.
func (p *PID) Reset() {
	p.integral = 0
	p.dFilt = 0
	p.lastMeas = 0
	p.lastOut = 0
	p.primed = false
	p.hold = false
}

// Integral exposes the integrator for telemetry.
func (p *PID) Integral() float64 {
	return p.integral
}

// TimingFaults reports how many updates were rejected for a bad dt.
func (p *PID) TimingFaults() uint32 {
	return p.timingFaults
}
