// Package interval holds the single conflict predicate shared by booking,
// rescheduling, and slot search.
package interval

import "time"

// Conflicts reports whether the candidate interval overlaps an existing
// reservation once the existing interval is expanded by buffer on both sides.
// The buffer is applied to the existing interval only, never the candidate.
func Conflicts(candStart, candEnd time.Time, buffer time.Duration, existStart, existEnd time.Time) bool {
	return candStart.Before(existEnd.Add(buffer)) && candEnd.After(existStart.Add(-buffer))
}

// BusyBlock is a buffer-expanded UTC interval derived from a ledger record.
// Ephemeral: computed for a single availability scan, never persisted.
type BusyBlock struct {
	Start time.Time
	End   time.Time
}

// NewBusyBlock expands [start, end) outward by buffer.
func NewBusyBlock(start, end time.Time, buffer time.Duration) BusyBlock {
	return BusyBlock{
		Start: start.Add(-buffer),
		End:   end.Add(buffer),
	}
}

// Overlaps reports whether [start, end) intersects the block.
func (b BusyBlock) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// AnyOverlap reports whether [start, end) intersects any block.
func AnyOverlap(blocks []BusyBlock, start, end time.Time) bool {
	for _, b := range blocks {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
