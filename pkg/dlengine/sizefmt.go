package dlengine

import (
	"fmt"
	"time"
)

var speedUnits = [...]string{"B/s", "KB/s", "MB/s", "GB/s", "TB/s", "PB/s"}

// FormatSpeed renders downloaded/(now-start) as a "B/s", "KB/s", "MB/s", ...
// string with exactly one decimal place, stepping by powers of 1024. This
// is done by hand rather than through a general-purpose byte formatter:
// humanize.IBytes and its kin round to a whole number once the mantissa
// reaches double digits (10240 B/s renders as "10 KB/s", not "10.0 KB/s"),
// which breaks the fixed one-decimal wire format this protocol uses.
func FormatSpeed(downloaded int64, elapsed time.Duration) string {
	if elapsed <= 0 || downloaded <= 0 {
		return "0.0 B/s"
	}
	bps := float64(downloaded) / elapsed.Seconds()

	unit := 0
	for bps >= 1024 && unit < len(speedUnits)-1 {
		bps /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", bps, speedUnits[unit])
}
