package main

import (
	"context"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/c360/boardkit/drivers/cyton"
)

// feedSyntheticFrames dials listenAddress over UDP and writes one
// Cyton-family frame every 4ms (250Hz), standing in for a physical Wifi
// board so the CLI has something to stream without hardware attached.
func feedSyntheticFrames(ctx context.Context, listenAddress string, logger *slog.Logger) {
	conn, err := net.Dial("udp", listenAddress)
	if err != nil {
		logger.Warn("synthetic feeder failed to dial", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(4 * time.Millisecond)
	defer ticker.Stop()

	var sampleNum byte
	var t float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := syntheticFrame(sampleNum, t)
			if _, err := conn.Write(frame); err != nil {
				return
			}
			sampleNum++
			t += 0.004
		}
	}
}

// syntheticFrame builds one valid 33-byte Cyton-family frame carrying an
// 8-channel sine wave, one distinct frequency per channel.
func syntheticFrame(sampleNum byte, t float64) []byte {
	b := make([]byte, cyton.PackageSize)
	b[0] = cyton.StartByte
	b[1] = sampleNum

	for ch := 0; ch < 8; ch++ {
		freq := 5.0 + float64(ch)
		amplitude := 50_000.0
		raw := int32(amplitude * math.Sin(2*math.Pi*freq*t))
		off := 2 + 3*ch
		b[off] = byte(raw >> 16)
		b[off+1] = byte(raw >> 8)
		b[off+2] = byte(raw)
	}

	for i := 0; i < 6; i++ {
		b[26+i] = 0
	}
	b[32] = cyton.EndStandard
	return b
}
