package models

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// DurationOption is one of the session lengths an organizer can pick.
type DurationOption struct {
	Value    string
	Label    string
	Duration time.Duration
}

// DefaultDuration is used when a create request does not name one.
const DefaultDuration = "1h"

// Durations lists the supported session lengths, shortest first.
// Months are 30 day blocks.
var Durations = []DurationOption{
	{Value: "1m", Label: "1 Minute", Duration: time.Minute},
	{Value: "5m", Label: "5 Minutes", Duration: 5 * time.Minute},
	{Value: "10m", Label: "10 Minutes", Duration: 10 * time.Minute},
	{Value: "30m", Label: "30 Minutes", Duration: 30 * time.Minute},
	{Value: "1h", Label: "1 Hour", Duration: time.Hour},
	{Value: "6h", Label: "6 Hours", Duration: 6 * time.Hour},
	{Value: "12h", Label: "12 Hours", Duration: 12 * time.Hour},
	{Value: "1d", Label: "1 Day", Duration: day},
	{Value: "3d", Label: "3 Days", Duration: 3 * day},
	{Value: "1w", Label: "1 Week", Duration: 7 * day},
	{Value: "2w", Label: "2 Weeks", Duration: 14 * day},
	{Value: "3w", Label: "3 Weeks", Duration: 21 * day},
	{Value: "4w", Label: "4 Weeks", Duration: 28 * day},
	{Value: "2mo", Label: "2 Months", Duration: 60 * day},
	{Value: "3mo", Label: "3 Months", Duration: 90 * day},
}

// LookupDuration resolves a preset value. An empty value resolves to DefaultDuration.
func LookupDuration(value string) (DurationOption, error) {
	if value == "" {
		value = DefaultDuration
	}
	for _, opt := range Durations {
		if opt.Value == value {
			return opt, nil
		}
	}
	return DurationOption{}, fmt.Errorf("unknown duration %q", value)
}
