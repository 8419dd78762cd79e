/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	sequencer.go: the auto-flight state machine. Transitions are strictly
	forward except the explicit abort back to Init; sustained undervoltage
	or the altitude ceiling force a landing from any active state within
	one tick.
*/

package control

// State is the auto-flight phase.
type State int

const (
	StateInit State = iota
	StateCalibration
	StateWait
	StateTakeoff
	StateHover
	StateLanding
	StateComplete
)

var stateNames = [...]string{
	"Init", "Calibration", "Wait", "Takeoff", "Hover", "Landing", "Complete",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Flying reports whether motors may be driven in this state.
func (s State) Flying() bool {
	return s == StateTakeoff || s == StateHover || s == StateLanding
}

// Inputs is everything a transition may depend on, precomputed by the tick
// so Next stays a pure function.
type Inputs struct {
	CalibrationDone    bool
	SettleDone         bool
	Armed              bool
	HoverReached       bool
	StopCommand        bool
	LowVoltage         bool
	AltitudeLimit      bool
	FlightTimeExceeded bool
	TouchedDown        bool
	OverG              bool
	Abort              bool
}

// Next is the transition function. Abort wins over everything; the safety
// flags win over the per-state logic.
func Next(s State, in Inputs) State {
	if in.Abort {
		return StateInit
	}
	if (in.LowVoltage || in.AltitudeLimit) && s != StateLanding && s != StateComplete {
		return StateLanding
	}

	switch s {
	case StateInit:
		return StateCalibration
	case StateCalibration:
		if in.CalibrationDone {
			return StateWait
		}
	case StateWait:
		if in.SettleDone && in.Armed {
			return StateTakeoff
		}
	case StateTakeoff:
		if in.OverG {
			return StateComplete
		}
		if in.StopCommand || in.FlightTimeExceeded {
			return StateLanding
		}
		if in.HoverReached {
			return StateHover
		}
	case StateHover:
		if in.OverG {
			return StateComplete
		}
		if in.StopCommand || in.FlightTimeExceeded {
			return StateLanding
		}
	case StateLanding:
		if in.OverG {
			return StateComplete
		}
		if in.TouchedDown {
			return StateComplete
		}
	case StateComplete:
		// Terminal until Init is re-entered via abort.
	}
	return s
}

// Sequencer owns the state plus the phase bookkeeping: calibration sums,
// the Wait settle timer, the takeoff thrust ramp, the flight timer and the
// landing descent history.
type Sequencer struct {
	cfg *Config

	state State
	prev  State

	offsetCount                int
	rollSum, pitchSum, yawSum  float64
	rollOff, pitchOff, yawOff  float64

	settleCount int
	rampCount   int
	flightTicks int

	landingActive bool
	landingBias   float64
	altHist       [10]float64
}

// NewSequencer starts in Init.
func NewSequencer(cfg *Config) *Sequencer {
	return &Sequencer{cfg: cfg}
}

// State returns the current phase.
func (q *Sequencer) State() State { return q.state }

// Prev returns the phase before the last Step.
func (q *Sequencer) Prev() State { return q.prev }

// Changed reports whether the last Step moved the machine.
func (q *Sequencer) Changed() bool { return q.state != q.prev }

// Step advances the machine one tick and runs entry bookkeeping.
func (q *Sequencer) Step(in Inputs) State {
	q.prev = q.state
	next := Next(q.state, in)
	if next != q.state {
		q.enter(next)
	}
	q.state = next

	switch q.state {
	case StateWait:
		if q.settleCount < q.cfg.SettleTicks {
			q.settleCount++
		}
	case StateTakeoff, StateHover, StateLanding:
		q.flightTicks++
	}
	return q.state
}

func (q *Sequencer) enter(s State) {
	switch s {
	case StateInit:
		q.rollOff, q.pitchOff, q.yawOff = 0, 0, 0
		q.settleCount, q.rampCount, q.flightTicks = 0, 0, 0
		q.landingActive = false
	case StateCalibration:
		q.offsetCount = 0
		q.rollSum, q.pitchSum, q.yawSum = 0, 0, 0
	case StateWait:
		q.settleCount = 0
		q.rampCount = 0
		q.flightTicks = 0
	case StateLanding:
		q.landingActive = false
	}
}

// SettleDone reports whether the Wait-state AHRS settle period has elapsed.
func (q *Sequencer) SettleDone() bool {
	return q.settleCount >= q.cfg.SettleTicks
}

// FlightTimeExceeded reports whether the flight timer ran out.
func (q *Sequencer) FlightTimeExceeded() bool {
	return q.cfg.MaxFlightTicks > 0 && q.flightTicks > q.cfg.MaxFlightTicks
}

// AccumulateOffsets folds one calibration sample into the bias averages and
// reports whether the window is full.
func (q *Sequencer) AccumulateOffsets(roll, pitch, yaw float64) bool {
	if q.offsetCount >= q.cfg.AverageNum {
		return true
	}
	q.rollSum += roll
	q.pitchSum += pitch
	q.yawSum += yaw
	q.offsetCount++
	if q.offsetCount == q.cfg.AverageNum {
		n := float64(q.cfg.AverageNum)
		q.rollOff = q.rollSum / n
		q.pitchOff = q.pitchSum / n
		q.yawOff = q.yawSum / n
		return true
	}
	return false
}

// Offsets returns the angle bias averages computed during Calibration.
func (q *Sequencer) Offsets() (roll, pitch, yaw float64) {
	return q.rollOff, q.pitchOff, q.yawOff
}

// ThrustBias returns the feed-forward hover duty for this tick. During
// takeoff it ramps monotonically from zero toward the trim duty; during
// landing it decays while the airframe descends.
func (q *Sequencer) ThrustBias(voltageAvg, altitude float64) float64 {
	cfg := q.cfg
	switch q.state {
	case StateTakeoff, StateHover:
		var bias float64
		half := cfg.RampTicks / 2
		switch {
		case q.rampCount < half:
			bias = float64(q.rampCount) / float64(cfg.RampTicks)
			if cap := cfg.TrimDuty(cfg.RampHoldoffVoltage); bias > cap {
				bias = cap
			}
			q.rampCount++
		case q.rampCount < cfg.RampTicks:
			bias = float64(q.rampCount) / float64(cfg.RampTicks)
			if cap := cfg.TrimDuty(voltageAvg); bias > cap {
				bias = cap
			}
			q.rampCount++
		default:
			bias = cfg.TrimDuty(voltageAvg)
		}
		return bias

	case StateLanding:
		if !q.landingActive {
			q.landingActive = true
			q.landingBias = cfg.TrimDuty(voltageAvg)
			for i := range q.altHist {
				q.altHist[i] = altitude
			}
		}
		// Decay the bias only while the descent has stalled; near the
		// ground always bleed off.
		if q.altHist[len(q.altHist)-1] <= altitude {
			q.landingBias *= 0.9999
		}
		if altitude < cfg.TouchdownAltitude*1.5 {
			q.landingBias *= 0.999
		}
		copy(q.altHist[1:], q.altHist[:len(q.altHist)-1])
		q.altHist[0] = altitude
		return q.landingBias

	default:
		return 0
	}
}

// TouchedDown reports landing completion for the given measured altitude.
func (q *Sequencer) TouchedDown(altitude float64) bool {
	return q.state == StateLanding && q.landingActive && altitude < q.cfg.TouchdownAltitude
}
