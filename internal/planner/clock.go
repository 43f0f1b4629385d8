package planner

import "fmt"

// DefaultStartTime is the clock position where every scheduled day begins.
const DefaultStartTime = "09:00"

// AddMinutes advances an HH:MM clock string by the given number of minutes,
// wrapping around midnight. "23:30" + 45 yields "00:15".
func AddMinutes(clock string, minutes int) string {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		h, m = 9, 0
	}

	total := (h*60 + m + minutes) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}

	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
