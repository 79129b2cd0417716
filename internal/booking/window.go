package booking

import (
	"strconv"
	"strings"
)

// MinWindowMinutes is the shortest pick-up/delivery window we accept.
const MinWindowMinutes = 360

// WindowTooShortMessage is shown when a submission fails ValidWindow.
const WindowTooShortMessage = "La franja debe ser de al menos 6 horas."

// ValidWindow reports whether an HH:MM window spans at least six hours.
// An incomplete window is not checkable yet and counts as valid. Windows
// that cross midnight are not folded over and fail.
func ValidWindow(start, end string) bool {
	if start == "" || end == "" {
		return true
	}

	startMin, ok := clockMinutes(start)
	if !ok {
		return false
	}
	endMin, ok := clockMinutes(end)
	if !ok {
		return false
	}
	return endMin-startMin >= MinWindowMinutes
}

func clockMinutes(s string) (int, bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hours, ok := clockField(h)
	if !ok {
		return 0, false
	}
	// "08:30:00" from some browsers carries seconds; only minutes count
	m, _, _ = strings.Cut(m, ":")
	minutes, ok := clockField(m)
	if !ok {
		return 0, false
	}
	return hours*60 + minutes, true
}

// clockField reads one HH or MM component; a blank component reads as zero.
func clockField(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
