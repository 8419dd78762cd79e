/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	network.go: the UDP surfaces. One socket receives command/override
	frames from the relay and hands them to the link adapter, one receives
	motion-capture state packets, and one sends angle acknowledgements
	back.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"net"
	"sync"
	"time"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/link"
	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/sensors"
)

// commandListener receives command frames from the relay and offers them
// to the adapter. Malformed datagrams are dropped inside the adapter.
func commandListener(port int, a *link.Adapter) {
	addr := net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		log.Printf("FC Error: command listener on :%d: %s\n", port, err.Error())
		return
	}
	log.Printf("FC Info: command listener on :%d.\n", port)
	buf := make([]byte, 64)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			log.Printf("FC Error: command read: %s\n", err.Error())
			return
		}
		a.OfferFrame(buf[:n], time.Now())
	}
}

// udpFeedback sends angle acknowledgements back to the commander.
// Best-effort: a failed send is reported, never retried here.
type udpFeedback struct {
	conn *net.UDPConn
	buf  [link.FrameLen]byte
	mu   sync.Mutex
}

func newUDPFeedback(addr string) (*udpFeedback, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	log.Printf("FC Info: angle feedback to %s.\n", addr)
	return &udpFeedback{conn: conn}, nil
}

// SendAngleFeedback implements link.FeedbackSender.
func (u *udpFeedback) SendAngleFeedback(roll, pitch float32, seq uint32) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	b := link.MarshalFrame(u.buf[:], link.Frame{
		Type: link.FrameFeedback, Seq: seq, Roll: roll, Pitch: pitch,
	})
	_, err := u.conn.Write(b)
	return err == nil
}

// mocapPacketLen is the state packet from the capture bridge: 9 float32
// little-endian (roll, pitch, yaw, p, q, r, altitude, climb, voltage)
// plus a flags byte (bit0 over-G, bit1 estimator reset).
const mocapPacketLen = 9*4 + 1

// mocapListener turns the motion-capture stream into the loop's estimator.
// The tick reads the latest sample; the socket goroutine overwrites it.
type mocapListener struct {
	mu     sync.Mutex
	latest sensors.Sample
}

func newMocapListener(port int) (*mocapListener, error) {
	addr := net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		return nil, fmt.Errorf("mocap listener on :%d: %w", port, err)
	}
	log.Printf("FC Info: mocap listener on :%d.\n", port)
	m := &mocapListener{}
	go m.rx(conn)
	return m, nil
}

func (m *mocapListener) rx(conn *net.UDPConn) {
	buf := make([]byte, 64)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			log.Printf("FC Error: mocap read: %s\n", err.Error())
			return
		}
		if n != mocapPacketLen {
			continue
		}
		f := func(i int) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
		flags := buf[9*4]
		m.mu.Lock()
		m.latest = sensors.Sample{
			Roll: f(0), Pitch: f(1), Yaw: f(2),
			RollRate: f(3), PitchRate: f(4), YawRate: f(5),
			Altitude:  f(6),
			ClimbRate: f(7),
			Voltage:   f(8),
			OverG:     flags&0x01 != 0,
			AHRSReset: flags&0x02 != 0,
		}
		m.mu.Unlock()
	}
}

// Read implements sensors.Estimator.
func (m *mocapListener) Read() sensors.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// ResetAttitude implements sensors.Estimator. The capture system owns the
// attitude solution; there is nothing to re-zero on this side.
func (m *mocapListener) ResetAttitude() {}
