package domain

import (
	"fmt"
	"time"
)

// Candle is one OHLC bar. Within a series only the newest bar mutates
// between bar boundaries; older bars are frozen.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Symbol    string
}

// Timeframe is a chart bar duration.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe1d:  24 * time.Hour,
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", &ValidationError{Message: fmt.Sprintf("Unknown timeframe: %s. Must be one of: 1m, 5m, 15m, 1h, 1d", s)}
	}
	return tf, nil
}

// Duration returns the bar length of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}
