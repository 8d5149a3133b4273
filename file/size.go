package file

import (
	"fmt"
	"math"
)

// sizeUnits are the magnitudes FormatSize can select, smallest first.
var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with two decimals in the largest 1024-based
// unit not exceeding it, for example 1536 becomes "1.50 KB". Non-positive
// counts render as "0 B". Counts beyond the TB range stay in TB.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	// floor(log1024(bytes)), computed with integer division to stay exact
	// at unit boundaries
	unit := 0
	for v := bytes; v >= 1024 && unit < len(sizeUnits)-1; v /= 1024 {
		unit++
	}

	scaled := float64(bytes) / math.Pow(1024, float64(unit))
	return fmt.Sprintf("%.2f %s", scaled, sizeUnits[unit])
}
