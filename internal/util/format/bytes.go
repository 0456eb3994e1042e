// Package format renders sizes and rates for people.
package format

import (
	"strconv"
	"time"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanizeBytes renders a byte count in binary units, e.g. "1.5 MB".
// Negative counts render as "0 B".
func HumanizeBytes(b int64) string {
	if b < 1024 {
		if b < 0 {
			b = 0
		}
		return strconv.FormatInt(b, 10) + " B"
	}
	v, exp := float64(b), 0
	for v >= 1024 && exp < len(units)-1 {
		v /= 1024
		exp++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + units[exp]
}

// HumanizeRate renders the throughput of moving b bytes in d, e.g.
// "2.0 MB/s". A non-positive duration yields "n/a".
func HumanizeRate(b int64, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	perSec := float64(b) / d.Seconds()
	return HumanizeBytes(int64(perSec)) + "/s"
}
