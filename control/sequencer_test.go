package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextForwardProgression(t *testing.T) {
	require.Equal(t, StateCalibration, Next(StateInit, Inputs{}))
	require.Equal(t, StateCalibration, Next(StateCalibration, Inputs{}))
	require.Equal(t, StateWait, Next(StateCalibration, Inputs{CalibrationDone: true}))
	require.Equal(t, StateWait, Next(StateWait, Inputs{Armed: true})) // not settled yet
	require.Equal(t, StateWait, Next(StateWait, Inputs{SettleDone: true}))
	require.Equal(t, StateTakeoff, Next(StateWait, Inputs{SettleDone: true, Armed: true}))
	require.Equal(t, StateTakeoff, Next(StateTakeoff, Inputs{}))
	require.Equal(t, StateHover, Next(StateTakeoff, Inputs{HoverReached: true}))
	require.Equal(t, StateHover, Next(StateHover, Inputs{}))
	require.Equal(t, StateLanding, Next(StateHover, Inputs{StopCommand: true}))
	require.Equal(t, StateLanding, Next(StateLanding, Inputs{}))
	require.Equal(t, StateComplete, Next(StateLanding, Inputs{TouchedDown: true}))
	require.Equal(t, StateComplete, Next(StateComplete, Inputs{StopCommand: true, Armed: true}))
}

func TestNextForcedLandingFromAnyState(t *testing.T) {
	all := []State{StateInit, StateCalibration, StateWait, StateTakeoff, StateHover}
	for _, s := range all {
		require.Equal(t, StateLanding, Next(s, Inputs{LowVoltage: true}), "low voltage from %s", s)
		require.Equal(t, StateLanding, Next(s, Inputs{AltitudeLimit: true}), "alt limit from %s", s)
	}
	// Already landing: stays there, no bounce.
	require.Equal(t, StateLanding, Next(StateLanding, Inputs{LowVoltage: true}))
	// Complete is terminal; the motors are already off.
	require.Equal(t, StateComplete, Next(StateComplete, Inputs{LowVoltage: true}))
}

func TestNextAbortWinsOverEverything(t *testing.T) {
	for _, s := range []State{StateInit, StateCalibration, StateWait, StateTakeoff, StateHover, StateLanding, StateComplete} {
		require.Equal(t, StateInit, Next(s, Inputs{Abort: true, LowVoltage: true, StopCommand: true}))
	}
}

func TestNextMaxFlightTimeForcesLanding(t *testing.T) {
	require.Equal(t, StateLanding, Next(StateHover, Inputs{FlightTimeExceeded: true}))
	require.Equal(t, StateLanding, Next(StateTakeoff, Inputs{FlightTimeExceeded: true}))
}

func TestNextOverGCutsToComplete(t *testing.T) {
	require.Equal(t, StateComplete, Next(StateTakeoff, Inputs{OverG: true}))
	require.Equal(t, StateComplete, Next(StateHover, Inputs{OverG: true}))
	require.Equal(t, StateComplete, Next(StateLanding, Inputs{OverG: true}))
}

func TestSequencerCalibrationWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AverageNum = 4
	q := NewSequencer(&cfg)
	q.Step(Inputs{}) // Init -> Calibration

	samples := [][3]float64{{0.1, -0.2, 0.3}, {0.1, -0.2, 0.3}, {0.3, 0.0, 0.1}, {0.3, 0.0, 0.1}}
	var done bool
	for _, s := range samples {
		done = q.AccumulateOffsets(s[0], s[1], s[2])
	}
	require.True(t, done)
	r, p, y := q.Offsets()
	require.InDelta(t, 0.2, r, 1e-12)
	require.InDelta(t, -0.1, p, 1e-12)
	require.InDelta(t, 0.2, y, 1e-12)
}

func TestSequencerThrustRampMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	q := NewSequencer(&cfg)
	q.state = StateTakeoff

	var last float64
	for i := 0; i < cfg.RampTicks+100; i++ {
		bias := q.ThrustBias(3.7, 0.0)
		require.GreaterOrEqual(t, bias, last, "ramp must be monotonic at tick %d", i)
		require.LessOrEqual(t, bias, cfg.TrimDuty(3.7)+1e-9)
		last = bias
	}
	require.InDelta(t, cfg.TrimDuty(3.7), last, 1e-9)
}

func TestSequencerLandingBiasDecays(t *testing.T) {
	cfg := DefaultConfig()
	q := NewSequencer(&cfg)
	q.state = StateLanding

	// Altitude stuck: bias must bleed off so the vehicle comes down.
	first := q.ThrustBias(3.7, 0.5)
	var bias float64
	for i := 0; i < 4000; i++ {
		bias = q.ThrustBias(3.7, 0.5)
	}
	require.Less(t, bias, first)
	require.False(t, q.TouchedDown(0.5))
	require.True(t, func() bool { q.ThrustBias(3.7, 0.05); return q.TouchedDown(0.05) }())
}
