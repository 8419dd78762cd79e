package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFeedback struct {
	sent []uint32
	ok   bool
}

func (f *fakeFeedback) SendAngleFeedback(roll, pitch float32, seq uint32) bool {
	f.sent = append(f.sent, seq)
	return f.ok
}

func TestAdapterSequenceOrdering(t *testing.T) {
	a := NewAdapter(200*time.Millisecond, nil)
	now := time.Unix(0, 0)

	// Deliveries [5, 3, 7, 7]: apply 5 and 7, drop the reordered 3 and the
	// duplicate 7.
	a.OfferAngle(Envelope{Roll: 0.5, Seq: 5}, now)
	roll, _, active := a.Consume(now)
	require.True(t, active)
	require.InDelta(t, 0.5, roll, 1e-6)
	require.EqualValues(t, 5, a.LastApplied())

	a.OfferAngle(Envelope{Roll: 0.3, Seq: 3}, now)
	roll, _, _ = a.Consume(now)
	require.InDelta(t, 0.5, roll, 1e-6, "reordered envelope must not regress the command")
	require.EqualValues(t, 5, a.LastApplied())

	a.OfferAngle(Envelope{Roll: 0.7, Seq: 7}, now)
	a.OfferAngle(Envelope{Roll: 0.7, Seq: 7}, now)
	roll, _, _ = a.Consume(now)
	require.InDelta(t, 0.7, roll, 1e-6)
	require.EqualValues(t, 2, a.StaleDrops())
}

func TestAdapterNewestPendingWins(t *testing.T) {
	a := NewAdapter(200*time.Millisecond, nil)
	now := time.Unix(0, 0)

	// Two envelopes between ticks: only the newest is applied.
	a.OfferAngle(Envelope{Roll: 0.1, Seq: 1}, now)
	a.OfferAngle(Envelope{Roll: 0.2, Seq: 2}, now)
	roll, _, _ := a.Consume(now)
	require.InDelta(t, 0.2, roll, 1e-6)
	require.EqualValues(t, 2, a.LastApplied())
	require.Zero(t, a.StaleDrops())
}

func TestAdapterOverrideTimeout(t *testing.T) {
	a := NewAdapter(200*time.Millisecond, nil)
	now := time.Unix(0, 0)

	a.OfferAngle(Envelope{Roll: 0.2, Seq: 1}, now)
	_, _, active := a.Consume(now)
	require.True(t, active)

	// Still within the timeout window.
	_, _, active = a.Consume(now.Add(150 * time.Millisecond))
	require.True(t, active)

	// Past it: the override lapses until a new envelope arrives.
	_, _, active = a.Consume(now.Add(201 * time.Millisecond))
	require.False(t, active)

	a.OfferAngle(Envelope{Roll: 0.3, Seq: 2}, now.Add(300*time.Millisecond))
	roll, _, active := a.Consume(now.Add(300 * time.Millisecond))
	require.True(t, active)
	require.InDelta(t, 0.3, roll, 1e-6)
}

func TestAdapterFeedbackPacing(t *testing.T) {
	fb := &fakeFeedback{ok: true}
	a := NewAdapter(200*time.Millisecond, fb)
	now := time.Unix(0, 0)

	a.OfferAngle(Envelope{Seq: 1}, now)
	a.Consume(now)
	require.Equal(t, []uint32{1}, fb.sent)

	// Same sequence inside the pacing interval: no resend.
	a.Consume(now.Add(2 * time.Millisecond))
	require.Len(t, fb.sent, 1)

	// A fresh sequence goes out immediately.
	a.OfferAngle(Envelope{Seq: 2}, now.Add(3*time.Millisecond))
	a.Consume(now.Add(3 * time.Millisecond))
	require.Equal(t, []uint32{1, 2}, fb.sent)

	// The same sequence is repeated once the interval has elapsed.
	a.Consume(now.Add(14 * time.Millisecond))
	require.Equal(t, []uint32{1, 2, 2}, fb.sent)
}

func TestAdapterFeedbackRetriesAfterSendFailure(t *testing.T) {
	fb := &fakeFeedback{ok: false}
	a := NewAdapter(200*time.Millisecond, fb)
	now := time.Unix(0, 0)

	a.OfferAngle(Envelope{Seq: 1}, now)
	a.Consume(now)
	a.Consume(now.Add(time.Millisecond))
	// Failed sends don't advance the acknowledged sequence, so every tick
	// retries.
	require.Equal(t, []uint32{1, 1}, fb.sent)
}

func TestAdapterTextCommands(t *testing.T) {
	a := NewAdapter(200*time.Millisecond, nil)

	_, ok := a.ConsumeText()
	require.False(t, ok)

	a.OfferText("start")
	cmd, ok := a.ConsumeText()
	require.True(t, ok)
	require.Equal(t, "start", cmd)
	_, ok = a.ConsumeText()
	require.False(t, ok, "a text command is consumed exactly once")

	// Last-write-wins between ticks.
	a.OfferText("start")
	a.OfferText("stop")
	cmd, _ = a.ConsumeText()
	require.Equal(t, "stop", cmd)

	// Oversized input is truncated to the wire bound, not rejected.
	long := "this text command is far longer than the wire format allows"
	a.OfferText(long)
	cmd, ok = a.ConsumeText()
	require.True(t, ok)
	require.Equal(t, long[:TextLen], cmd)
}

func TestAdapterReset(t *testing.T) {
	a := NewAdapter(200*time.Millisecond, nil)
	now := time.Unix(0, 0)

	a.OfferAngle(Envelope{Seq: 9}, now)
	a.Consume(now)
	require.EqualValues(t, 9, a.LastApplied())

	a.Reset()
	require.Zero(t, a.LastApplied())
	_, _, active := a.Consume(now)
	require.False(t, active)

	// A new session restarts sequence numbering from scratch.
	a.OfferAngle(Envelope{Roll: 0.1, Seq: 1}, now)
	roll, _, active := a.Consume(now)
	require.True(t, active)
	require.InDelta(t, 0.1, roll, 1e-6)
}
