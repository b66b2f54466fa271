package profile

import (
	"time"
)

// BucketInplay marks snapshots taken after the scheduled off; they are
// excluded from profiling.
const BucketInplay = "inplay"

// TimeBucket maps time-to-off to a discrete profiling bucket.
func TimeBucket(scheduledOff, at time.Time) string {
	hours := scheduledOff.Sub(at).Hours()
	switch {
	case hours < 0:
		return BucketInplay
	case hours < 2:
		return "<2h"
	case hours < 6:
		return "2-6h"
	case hours < 24:
		return "6-24h"
	case hours < 72:
		return "24-72h"
	default:
		return "72h+"
	}
}

// OddsBand classifies a decimal price into the reporting band used on
// score rows.
func OddsBand(price float64) string {
	switch {
	case price < 1.01:
		return "Unknown"
	case price <= 1.50:
		return "Heavy Fav"
	case price <= 2.00:
		return "Favourite"
	case price <= 3.00:
		return "Even"
	case price <= 5.00:
		return "Underdog"
	default:
		return "Longshot"
	}
}
