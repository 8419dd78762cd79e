/*
	Copyright (c) 2024 Ryoma Ito
	Distributable under the terms of The MIT License
	that can be found in the LICENSE file, herein included
	as part of this header.

	codec.go: the packed command frame shared with the relay. 14 bytes,
	little-endian: type u8, sequence u32, roll f32, pitch f32, checksum u8
	(modular sum of the preceding bytes).
*/

package link

import (
	"encoding/binary"
	"errors"
	"math"
)

// Frame types on the wire.
const (
	FrameStart    uint8 = 1
	FrameStop     uint8 = 2
	FrameAngle    uint8 = 3
	FrameFeedback uint8 = 4
)

// FrameLen is the fixed wire size of every frame.
const FrameLen = 14

var (
	errFrameLen      = errors.New("link: bad frame length")
	errFrameChecksum = errors.New("link: bad frame checksum")
)

// Frame is a decoded command or feedback message.
type Frame struct {
	Type  uint8
	Seq   uint32
	Roll  float32 // rad
	Pitch float32 // rad
}

// Checksum is the modular byte sum used by the relay protocol.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// MarshalFrame encodes f into dst, which must be at least FrameLen bytes,
// and returns the encoded slice. Encoding into a caller buffer keeps the
// send path allocation-free.
func MarshalFrame(dst []byte, f Frame) []byte {
	b := dst[:FrameLen]
	b[0] = f.Type
	binary.LittleEndian.PutUint32(b[1:5], f.Seq)
	binary.LittleEndian.PutUint32(b[5:9], math.Float32bits(f.Roll))
	binary.LittleEndian.PutUint32(b[9:13], math.Float32bits(f.Pitch))
	b[13] = Checksum(b[:13])
	return b
}

// UnmarshalFrame decodes a received datagram. Length or checksum mismatches
// are returned as errors; the caller drops them silently per the protocol.
func UnmarshalFrame(b []byte) (Frame, error) {
	if len(b) != FrameLen {
		return Frame{}, errFrameLen
	}
	if Checksum(b[:13]) != b[13] {
		return Frame{}, errFrameChecksum
	}
	return Frame{
		Type:  b[0],
		Seq:   binary.LittleEndian.Uint32(b[1:5]),
		Roll:  math.Float32frombits(binary.LittleEndian.Uint32(b[5:9])),
		Pitch: math.Float32frombits(binary.LittleEndian.Uint32(b[9:13])),
	}, nil
}
