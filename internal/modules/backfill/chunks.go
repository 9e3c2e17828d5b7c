package backfill

import "time"

// Window is one half-open [Start, End) slice of a backfill range.
type Window struct {
	Start time.Time
	End   time.Time
}

// GenerateDateChunks splits [start, end) into contiguous windows of the
// given size. The final window is truncated so its End equals end exactly;
// no part of the range is ever dropped or double-covered. An empty or
// inverted range yields no windows.
func GenerateDateChunks(start, end time.Time, size time.Duration) []Window {
	if !start.Before(end) || size <= 0 {
		return nil
	}
	var windows []Window
	for cur := start; cur.Before(end); {
		next := cur.Add(size)
		if next.After(end) {
			next = end
		}
		windows = append(windows, Window{Start: cur, End: next})
		cur = next
	}
	return windows
}
