package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonitorVoltageAverage(t *testing.T) {
	m := NewMonitor(4, 3.34, 100, 2.0)
	m.Update(3.6, 0)
	require.InDelta(t, 3.6, m.VoltageAvg(), 1e-12)
	m.Update(3.8, 0)
	require.InDelta(t, 3.7, m.VoltageAvg(), 1e-12)
	m.Update(3.7, 0)
	m.Update(3.7, 0)
	m.Update(3.7, 0) // wraps, evicts 3.6
	require.InDelta(t, (3.8+3.7+3.7+3.7)/4, m.VoltageAvg(), 1e-12)
}

func TestMonitorUndervoltageDebounce(t *testing.T) {
	m := NewMonitor(1, 3.34, 5, 2.0)

	for i := 0; i < 5; i++ {
		m.Update(3.2, 0)
	}
	require.False(t, m.LowVoltage(), "five ticks is not yet over the limit")

	// One good sample resets the debounce.
	m.Update(3.6, 0)
	require.Zero(t, m.UnderVoltageTicks())

	for i := 0; i < 6; i++ {
		m.Update(3.2, 0)
	}
	require.True(t, m.LowVoltage())

	// Latched: recovering voltage does not clear it this flight.
	for i := 0; i < 100; i++ {
		m.Update(4.2, 0)
	}
	require.True(t, m.LowVoltage())

	m.Reset()
	require.False(t, m.LowVoltage())
}

func TestMonitorAltitudeLimit(t *testing.T) {
	m := NewMonitor(1, 3.34, 5, 2.0)
	m.Update(3.7, 1.9)
	require.False(t, m.AltitudeLimit())
	m.Update(3.7, 2.1)
	require.True(t, m.AltitudeLimit())
	m.Update(3.7, 1.5)
	require.False(t, m.AltitudeLimit(), "altitude flag follows the measurement")
}

func TestMonitorAHRSResetEdge(t *testing.T) {
	m := NewMonitor(1, 3.34, 5, 2.0)
	m.SetAHRSReset(false)
	require.False(t, m.AHRSResetEdge())
	m.SetAHRSReset(true)
	require.True(t, m.AHRSResetEdge())
	m.SetAHRSReset(true)
	require.False(t, m.AHRSResetEdge(), "edge fires once")
	m.SetAHRSReset(false)
	m.SetAHRSReset(true)
	require.True(t, m.AHRSResetEdge())
}
