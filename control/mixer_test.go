package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMixEvenThrust(t *testing.T) {
	d, sat := Mix(0.5, 0, 0, 0)
	require.False(t, sat)
	require.Equal(t, 0.5, d.FrontRight)
	require.Equal(t, 0.5, d.FrontLeft)
	require.Equal(t, 0.5, d.RearRight)
	require.Equal(t, 0.5, d.RearLeft)
}

func TestMixMatrixSigns(t *testing.T) {
	// Positive roll torque raises the left side, drops the right.
	d, _ := Mix(0.5, 0.2, 0, 0)
	require.InDelta(t, 0.55, d.FrontLeft, 1e-12)
	require.InDelta(t, 0.55, d.RearLeft, 1e-12)
	require.InDelta(t, 0.45, d.FrontRight, 1e-12)
	require.InDelta(t, 0.45, d.RearRight, 1e-12)

	// Positive pitch torque raises the front pair.
	d, _ = Mix(0.5, 0, 0.2, 0)
	require.InDelta(t, 0.55, d.FrontLeft, 1e-12)
	require.InDelta(t, 0.55, d.FrontRight, 1e-12)
	require.InDelta(t, 0.45, d.RearLeft, 1e-12)
	require.InDelta(t, 0.45, d.RearRight, 1e-12)

	// Positive yaw torque drives the FR/RL pair.
	d, _ = Mix(0.5, 0, 0, 0.2)
	require.InDelta(t, 0.55, d.FrontRight, 1e-12)
	require.InDelta(t, 0.55, d.RearLeft, 1e-12)
	require.InDelta(t, 0.45, d.FrontLeft, 1e-12)
	require.InDelta(t, 0.45, d.RearRight, 1e-12)
}

func TestMixClampsArbitraryInputs(t *testing.T) {
	cases := []struct{ thrust, roll, pitch, yaw float64 }{
		{10, 0, 0, 0},
		{-10, 0, 0, 0},
		{0.5, 100, -100, 50},
		{1e9, 1e9, 1e9, 1e9},
		{-1e9, -1e9, -1e9, -1e9},
	}
	for _, c := range cases {
		d, sat := Mix(c.thrust, c.roll, c.pitch, c.yaw)
		require.True(t, sat)
		for _, duty := range []float64{d.FrontRight, d.FrontLeft, d.RearRight, d.RearLeft} {
			require.GreaterOrEqual(t, duty, 0.0)
			require.LessOrEqual(t, duty, 1.0)
		}
	}
}

func TestMixInRangeNotSaturated(t *testing.T) {
	_, sat := Mix(0.5, 0.1, 0.1, 0.1)
	require.False(t, sat)
}
