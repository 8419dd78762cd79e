/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	adapter.go: command-channel adapter between the asynchronous wireless
	receive path and the synchronous control tick. One pending envelope,
	swap-in-newest, discard-if-stale; the tick never observes a partial
	write and never blocks here.
*/

package link

import (
	"sync"
	"time"
)

// TextLen bounds the out-of-band text command (31 bytes + terminator on the
// original wire).
const TextLen = 31

// feedbackInterval paces acknowledgement resends while an override streams.
const feedbackInterval = 10 * time.Millisecond

// Envelope is one externally supplied attitude override.
type Envelope struct {
	Roll  float32
	Pitch float32
	Seq   uint32
}

// FeedbackSender is the best-effort acknowledgement path back to the
// commander. The return value reports the transmission attempt, not the
// peer's receipt; the channel is unreliable.
type FeedbackSender interface {
	SendAngleFeedback(roll, pitch float32, seq uint32) bool
}

// Adapter validates, sequences and applies attitude-override envelopes.
// The receive goroutine calls the Offer methods; the control tick calls
// Consume. The hand-off is a single lock-guarded slot.
type Adapter struct {
	mu      sync.Mutex
	timeout time.Duration

	pending    Envelope
	hasPending bool
	lastRx     time.Time

	applied     Envelope
	lastApplied uint32
	active      bool

	text        [TextLen + 1]byte
	textLen     int
	textPending bool

	feedback   FeedbackSender
	lastFbSeq  uint32
	lastFbTime time.Time

	staleDrops uint32
}

// NewAdapter builds an adapter with the given override staleness timeout.
// fb may be nil when no feedback path exists.
func NewAdapter(timeout time.Duration, fb FeedbackSender) *Adapter {
	return &Adapter{timeout: timeout, feedback: fb}
}

// OfferFrame dispatches a received datagram: angle frames become pending
// envelopes, start/stop frames become text commands. Malformed frames are
// dropped silently.
func (a *Adapter) OfferFrame(b []byte, now time.Time) {
	f, err := UnmarshalFrame(b)
	if err != nil {
		return
	}
	switch f.Type {
	case FrameAngle:
		a.OfferAngle(Envelope{Roll: f.Roll, Pitch: f.Pitch, Seq: f.Seq}, now)
	case FrameStart:
		a.OfferText("start")
	case FrameStop:
		a.OfferText("stop")
	}
}

// OfferAngle hands a new envelope to the tick. A sequence number not
// strictly greater than the last applied (or the already pending) one is a
// duplicate or reordered delivery and is dropped silently.
func (a *Adapter) OfferAngle(e Envelope, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Seq <= a.lastApplied || (a.hasPending && e.Seq <= a.pending.Seq) {
		a.staleDrops++
		return
	}
	a.pending = e
	a.hasPending = true
	a.lastRx = now
}

// OfferText stores an out-of-band text command, truncated to the wire
// bound. Last-write-wins; the tick consumes at most one per tick. Text
// commands are edge-triggered, so unlike OfferAngle no receive time is
// kept.
func (a *Adapter) OfferText(cmd string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := copy(a.text[:TextLen], cmd)
	a.text[n] = 0
	a.textLen = n
	a.textPending = true
}

// Consume is called once per tick. It applies a pending envelope if one
// arrived, reports whether an override is active, and emits paced feedback
// for the applied sequence. The override lapses when no envelope has been
// received for the configured timeout.
func (a *Adapter) Consume(now time.Time) (roll, pitch float64, active bool) {
	a.mu.Lock()
	if a.hasPending {
		a.applied = a.pending
		a.lastApplied = a.pending.Seq
		a.hasPending = false
		a.active = true
	}
	if a.active && now.Sub(a.lastRx) > a.timeout {
		a.active = false
	}

	var fb *Envelope
	if a.active {
		roll = float64(a.applied.Roll)
		pitch = float64(a.applied.Pitch)
		active = true
		if a.feedback != nil &&
			(a.applied.Seq != a.lastFbSeq || now.Sub(a.lastFbTime) >= feedbackInterval) {
			e := a.applied
			fb = &e
		}
	}
	a.mu.Unlock()

	// Send outside the lock; the receive path must never wait on the
	// radio.
	if fb != nil {
		if a.feedback.SendAngleFeedback(fb.Roll, fb.Pitch, fb.Seq) {
			a.mu.Lock()
			a.lastFbSeq = fb.Seq
			a.lastFbTime = now
			a.mu.Unlock()
		}
	}
	return roll, pitch, active
}

// ConsumeText returns and clears the pending text command, if any. The
// known commands come back as constants so the tick stays allocation-free.
func (a *Adapter) ConsumeText() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.textPending {
		return "", false
	}
	a.textPending = false
	switch {
	case a.textLen == 5 && string(a.text[:5]) == "start":
		return "start", true
	case a.textLen == 4 && string(a.text[:4]) == "stop":
		return "stop", true
	}
	return string(a.text[:a.textLen]), true
}

// StaleDrops counts envelopes discarded for duplicate or reordered
// sequence numbers.
func (a *Adapter) StaleDrops() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.staleDrops
}

// LastApplied returns the sequence number of the most recently applied
// envelope.
func (a *Adapter) LastApplied() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastApplied
}

// Reset clears override and sequencing state for a new session.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hasPending = false
	a.active = false
	a.lastApplied = 0
	a.lastFbSeq = 0
	a.textPending = false
	a.staleDrops = 0
}
