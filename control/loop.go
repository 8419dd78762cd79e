/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	loop.go: the 400Hz real-time tick. One logical thread of control: the
	scheduler measures the true interval, then safety monitor, sequencer,
	command adapter, cascade and mixer run synchronously and the duties go
	out. Nothing in here may block and nothing in here allocates.
*/

package control

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/link"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/pid"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sensors"
)

// TickPeriod is the nominal control period (400Hz). The loop always passes
// the measured interval to the PIDs, never this constant.
const TickPeriod = 2500 * time.Microsecond

// MotorOutput drives the four ESC duty inputs, each normalized [0,1].
type MotorOutput interface {
	SetDutyFrontRight(duty float64)
	SetDutyFrontLeft(duty float64)
	SetDutyRearRight(duty float64)
	SetDutyRearLeft(duty float64)
}

// Loop owns all mutable control state and runs the fixed-rate tick.
type Loop struct {
	cfg Config

	est     sensors.Estimator
	button  sensors.Button
	motors  MotorOutput
	adapter *link.Adapter

	seq     *Sequencer
	cascade *Cascade
	monitor *Monitor

	st ControlState

	buttonPrev   bool
	timingFaults uint32
	abortReq     atomic.Bool
	stateAtomic  atomic.Int32

	lastTick time.Time
	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	snap   ControlState
	onTick func(ControlState)
}

// NewLoop wires the collaborators together. button may be nil when the
// airframe arms over the link only.
func NewLoop(cfg Config, est sensors.Estimator, button sensors.Button,
	motors MotorOutput, adapter *link.Adapter) *Loop {
	l := &Loop{
		cfg:     cfg,
		est:     est,
		button:  button,
		motors:  motors,
		adapter: adapter,
		stop:    make(chan struct{}),
	}
	l.seq = NewSequencer(&l.cfg)
	l.cascade = NewCascade(&l.cfg)
	l.monitor = NewMonitor(l.cfg.AverageNum, l.cfg.PowerLimit, l.cfg.UnderVoltageCount, l.cfg.AltLimit)
	l.st.State = l.seq.State().String()
	l.stateAtomic.Store(int32(l.seq.State()))
	return l
}

// SetOnTick installs a per-tick snapshot consumer (flight logging). The
// callback must not block; it receives a copy.
func (l *Loop) SetOnTick(fn func(ControlState)) {
	l.onTick = fn
}

// Run drives the tick at the nominal rate until Stop. The measured interval
// is handed to every control computation so timer jitter doesn't corrupt
// the integrals.
func (l *Loop) Run() {
	log.Printf("FC Info: control loop starting at %v period.\n", TickPeriod)
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()
	l.lastTick = time.Now()
	for {
		select {
		case <-l.stop:
			l.parkMotors()
			log.Printf("FC Info: control loop stopped.\n")
			return
		case now := <-ticker.C:
			dt := now.Sub(l.lastTick).Seconds()
			l.lastTick = now
			l.Step(now, dt)
		}
	}
}

// Stop shuts the loop down and parks the motors.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Abort requests the explicit abort-to-Init path on the next tick.
func (l *Loop) Abort() {
	l.abortReq.Store(true)
}

// State returns the sequencer phase for the status indicator.
func (l *Loop) State() State {
	return State(l.stateAtomic.Load())
}

// Snapshot returns a copy of the control state as of the last tick.
func (l *Loop) Snapshot() ControlState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Step runs exactly one control tick with the given measured interval.
// Exported so tests and the simulator can drive the loop deterministically.
func (l *Loop) Step(now time.Time, dt float64) {
	if dt <= 0 || dt > pid.MaxInterval {
		// Scheduler fault: hold all outputs, count it, try again next
		// tick.
		l.timingFaults++
		l.st.TimingFaults = l.timingFaults + l.cascade.TimingFaults()
		l.publish()
		return
	}

	l.st.Ticks++
	l.st.Interval = dt
	if l.seq.State() != StateInit && l.seq.State() != StateCalibration {
		l.st.Elapsed += dt
	}

	sample := l.est.Read()
	l.monitor.Update(sample.Voltage, sample.Altitude)
	l.monitor.SetAHRSReset(sample.AHRSReset)
	if l.monitor.AHRSResetEdge() {
		// Fresh attitude estimate: stale integrators would fight it.
		l.cascade.Reset()
	}

	l.st.Roll = sample.Roll
	l.st.Pitch = sample.Pitch
	l.st.Altitude = sample.Altitude
	l.st.ClimbRate = sample.ClimbRate
	l.st.VoltageAvg = l.monitor.VoltageAvg()

	// Arm trigger: button rising edge or the "start" text command.
	var pressed bool
	if l.button != nil {
		pressed = l.button.Pressed()
	}
	buttonEdge := pressed && !l.buttonPrev
	l.buttonPrev = pressed

	var armed, stopCmd bool
	if cmd, ok := l.adapter.ConsumeText(); ok {
		switch cmd {
		case "start":
			armed = true
		case "stop":
			stopCmd = true
		default:
			log.Printf("FC Info: ignoring unknown command %q.\n", cmd)
		}
	}
	armed = armed || buttonEdge

	var calDone bool
	if l.seq.State() == StateCalibration {
		calDone = l.seq.AccumulateOffsets(sample.Roll, sample.Pitch, sample.Yaw)
	}

	prev := l.seq.State()
	state := l.seq.Step(Inputs{
		CalibrationDone:    calDone,
		SettleDone:         l.seq.SettleDone(),
		Armed:              armed,
		HoverReached:       sample.Altitude >= l.cfg.HoverAltitude-l.cfg.TakeoffTolerance,
		StopCommand:        stopCmd,
		LowVoltage:         l.monitor.LowVoltage(),
		AltitudeLimit:      l.monitor.AltitudeLimit(),
		FlightTimeExceeded: l.seq.FlightTimeExceeded(),
		TouchedDown:        l.seq.TouchedDown(sample.Altitude),
		OverG:              sample.OverG,
		Abort:              l.abortReq.Swap(false),
	})
	l.st.State = state.String()
	l.stateAtomic.Store(int32(state))

	if state != prev {
		log.Printf("FC Info: auto flight %s -> %s (alt %.2fm, %.2fV).\n",
			prev, state, sample.Altitude, l.monitor.VoltageAvg())
		switch state {
		case StateInit:
			l.st.RollOffset, l.st.PitchOffset, l.st.YawOffset = 0, 0, 0
			l.adapter.Reset()
			l.monitor.Reset()
		case StateWait:
			l.st.RollOffset, l.st.PitchOffset, l.st.YawOffset = l.seq.Offsets()
			l.cascade.Reset()
		case StateTakeoff:
			if prev == StateWait {
				l.est.ResetAttitude()
				l.cascade.Reset()
				l.st.Elapsed = 0
			}
			l.st.AltRef = l.cfg.ClampAltRef(l.cfg.HoverAltitude)
		case StateLanding:
			if l.monitor.LowVoltage() {
				log.Printf("FC Warning: undervoltage (%d ticks below %.2fV), forced landing.\n",
					l.monitor.UnderVoltageTicks(), l.cfg.PowerLimit)
			}
			if l.monitor.AltitudeLimit() {
				log.Printf("FC Warning: altitude limit %.1fm exceeded, forced landing.\n",
					l.cfg.AltLimit)
			}
		}
	}

	switch state {
	case StateTakeoff, StateHover, StateLanding:
		l.flyTick(sample, state == StateLanding, now, dt)
	default:
		l.st.zeroOutputs()
		l.parkMotors()
	}

	l.st.LowVoltage = l.monitor.LowVoltage()
	l.st.AltitudeLimit = l.monitor.AltitudeLimit()
	l.st.TimingFaults = l.timingFaults + l.cascade.TimingFaults()
	l.st.StaleDrops = l.adapter.StaleDrops()
	l.publish()
}

func (l *Loop) flyTick(sample sensors.Sample, landing bool, now time.Time, dt float64) {
	// External attitude override: applied for as long as the commander
	// streams, level otherwise. Ignored during landing.
	roll, pitch, active := l.adapter.Consume(now)
	if active && !landing {
		l.st.RollAngleCmd = roll + l.cfg.RollAngleBias
		l.st.PitchAngleCmd = pitch + l.cfg.PitchAngleBias
	} else {
		l.st.RollAngleCmd = l.cfg.RollAngleBias
		l.st.PitchAngleCmd = l.cfg.PitchAngleBias
	}
	l.st.OverrideActive = active && !landing
	l.st.YawRateRef = 0 // heading is not regulated; hold zero yaw rate

	l.st.ThrustBias = l.seq.ThrustBias(l.monitor.VoltageAvg(), sample.Altitude)

	l.cascade.AngleStep(&l.st, sample, landing, dt)
	d := l.cascade.RateStep(&l.st, sample, landing, dt)

	l.st.DutyFrontRight = d.FrontRight
	l.st.DutyFrontLeft = d.FrontLeft
	l.st.DutyRearRight = d.RearRight
	l.st.DutyRearLeft = d.RearLeft

	l.motors.SetDutyFrontRight(d.FrontRight)
	l.motors.SetDutyFrontLeft(d.FrontLeft)
	l.motors.SetDutyRearRight(d.RearRight)
	l.motors.SetDutyRearLeft(d.RearLeft)
}

func (l *Loop) parkMotors() {
	l.motors.SetDutyFrontRight(0)
	l.motors.SetDutyFrontLeft(0)
	l.motors.SetDutyRearRight(0)
	l.motors.SetDutyRearLeft(0)
}

func (l *Loop) publish() {
	l.mu.Lock()
	l.snap = l.st
	l.mu.Unlock()
	if l.onTick != nil {
		l.onTick(l.snap)
	}
}
