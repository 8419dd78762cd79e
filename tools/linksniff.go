//go:build ignore

package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/ryoma0415/MoCap-Hovering-Control-for-StampFly/link"
)

// Dumps command frames arriving on the relay port, decoded where valid.

func main() {
	t := time.Now()
	addr := net.UDPAddr{Port: 4810, IP: net.ParseIP("0.0.0.0")}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		fmt.Printf("linksniff: error listening: %s\n", err.Error())
		return
	}
	defer conn.Close()
	for {
		buf := make([]byte, 1024)
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			fmt.Printf("Err receive: %s\n", err.Error())
			continue
		}
		t2 := time.Now()
		time_diff := t2.Sub(t)
		t = t2

		f, err := link.UnmarshalFrame(buf[:n])
		if err != nil {
			buf_encoded := make([]byte, hex.EncodedLen(n))
			hex.Encode(buf_encoded, buf[:n])
			fmt.Printf("%d,BAD,%s\n", time_diff/time.Millisecond, buf_encoded)
			continue
		}
		fmt.Printf("%d,type=%d,seq=%d,roll=%.4f,pitch=%.4f\n",
			time_diff/time.Millisecond, f.Type, f.Seq, f.Roll, f.Pitch)
	}
}
