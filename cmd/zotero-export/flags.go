// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"strconv"
	"time"
)

var errNegativeDelay = errors.New("delay must not be negative")

// secondsValue is a duration flag that also accepts a bare number of
// seconds, so --sleep 0.5 and --sleep 500ms are the same.
type secondsValue struct {
	d *time.Duration
}

func newSecondsValue(d *time.Duration, def time.Duration) *secondsValue {
	*d = def
	return &secondsValue{d: d}
}

func (v *secondsValue) Set(s string) error {
	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.New("expected seconds (0.5) or a duration (500ms)")
		}
		d = parsed
	}
	if d < 0 {
		return errNegativeDelay
	}
	*v.d = d
	return nil
}

func (v *secondsValue) String() string {
	if v.d == nil {
		return "0s"
	}
	return v.d.String()
}

func (v *secondsValue) Type() string { return "seconds" }
