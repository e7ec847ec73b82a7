// Package wire encodes and decodes the console's text frames.
//
// Command (console -> robot):     @v0,v1,...,v9,t:<elapsedMillis>
// Observation (robot -> console): #v0,...,v9[,...] or @v0,...,v9[,...]
//
// Values are fixed point with two implied decimals: vi = round(100 * x).
package wire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// CommandPrefix starts every outgoing command frame.
	CommandPrefix = '@'
	// ObservationPrefix is the alternative leading character of inbound
	// observation frames.
	ObservationPrefix = '#'

	timeTag = "t:"
	scale   = 100
)

// ErrMalformedFrame is returned for inbound frames that cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Observation is a decoded inbound frame.
type Observation struct {
	// Values holds every positional value in wire order, already divided by
	// 100. It may be longer or shorter than the DoF count.
	Values []float64
	// Elapsed is the value of a t: field, when one was present.
	Elapsed    int64
	HasElapsed bool
}

// EncodeCommand builds a command frame from the commanded vector and the
// milliseconds elapsed since the time origin.
func EncodeCommand(values []float64, elapsedMillis int64) string {
	var b strings.Builder
	b.Grow(4*len(values) + 16)
	b.WriteByte(CommandPrefix)
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(toFixed(v), 10))
	}
	b.WriteString(",")
	b.WriteString(timeTag)
	b.WriteString(strconv.FormatInt(elapsedMillis, 10))
	return b.String()
}

// toFixed rounds 100*v to the nearest integer, ties toward +Inf.
func toFixed(v float64) int64 {
	return int64(math.Floor(v*scale + 0.5))
}

// Greeting is the frame sent once per opened connection.
func Greeting(now time.Time) string {
	return "Connect at " + strconv.FormatInt(now.UnixMilli(), 10)
}

// DecodeObservation parses an inbound frame. A t: field is read as elapsed
// time and is not part of the value window. Any other non-numeric field
// rejects the whole frame.
func DecodeObservation(frame string) (Observation, error) {
	if frame == "" || (frame[0] != ObservationPrefix && frame[0] != CommandPrefix) {
		return Observation{}, fmt.Errorf("%w: unexpected leading character in %q", ErrMalformedFrame, frame)
	}

	fields := strings.Split(frame[1:], ",")
	obs := Observation{Values: make([]float64, 0, len(fields))}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if strings.HasPrefix(f, timeTag) {
			t, err := strconv.ParseInt(strings.TrimSpace(f[len(timeTag):]), 10, 64)
			if err != nil {
				return Observation{}, fmt.Errorf("%w: bad time field %q", ErrMalformedFrame, f)
			}
			obs.Elapsed = t
			obs.HasElapsed = true
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Observation{}, fmt.Errorf("%w: field %d %q is not a number", ErrMalformedFrame, i, f)
		}
		obs.Values = append(obs.Values, v/scale)
	}
	return obs, nil
}
