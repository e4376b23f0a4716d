// Package timesync implements the round-trip-time clock correction exchange
// shared by several serial driver families: send a timestamped probe,
// record when the device's reply timestamps are received, and derive a
// correction offset that maps device-clock timestamps onto the host clock.
//
// The exchange is four timestamps: T1 (host sends), T2 (device receives),
// T3 (device replies), T4 (host receives the reply). Running it several
// times and keeping only the repetition with the smallest round trip time
// discards the (more common) case where the reply was delayed by
// scheduling jitter rather than genuine transport latency.
package timesync

import (
	"math"
	"time"
)

// Now returns the current time as fractional seconds since the Unix epoch,
// matching the host clock format every driver stamps into the timestamp
// channel.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Exchange holds the four timestamps of one round-trip probe.
type Exchange struct {
	T1 float64 // host sends probe
	T2 float64 // device receives probe (device clock)
	T3 float64 // device sends reply (device clock)
	T4 float64 // host receives reply
}

// HalfRTT returns half the round-trip time measured purely on the host
// clock, net of the device's own processing time between T2 and T3.
func (e Exchange) HalfRTT() float64 {
	return ((e.T4 - e.T1) - (e.T3 - e.T2)) / 2
}

// Correction returns the offset to add to a raw device-clock timestamp to
// express it on the host clock.
func (e Exchange) Correction() float64 {
	return ((e.T4 + e.T1) - (e.T3 + e.T2)) / 2
}

// Estimator accumulates repeated Exchange measurements and keeps the
// correction from whichever repetition had the smallest half-RTT, since
// that repetition suffered the least scheduling jitter.
type Estimator struct {
	halfRTT    float64
	correction float64
	seeded     bool
}

// NewEstimator returns an Estimator with no measurements yet; Correction()
// is 0 until the first Update.
func NewEstimator() *Estimator {
	return &Estimator{halfRTT: math.Inf(1)}
}

// Update folds in one more round-trip measurement, keeping the correction
// from the repetition with the smallest half-RTT seen so far.
func (est *Estimator) Update(e Exchange) {
	h := e.HalfRTT()
	if !est.seeded || h < est.halfRTT {
		est.halfRTT = h
		est.correction = e.Correction()
		est.seeded = true
	}
}

// Correction returns the best correction offset observed so far.
func (est *Estimator) Correction() float64 {
	return est.correction
}

// HalfRTT returns the smallest half-RTT observed so far.
func (est *Estimator) HalfRTT() float64 {
	return est.halfRTT
}

// Apply adds the estimator's current correction to a raw device timestamp.
func (est *Estimator) Apply(deviceTimestamp float64) float64 {
	return deviceTimestamp + est.correction
}
