package scorm

import (
	"fmt"
	"strconv"
	"strings"
)

// SCORM carries elapsed time in two textual formats: CMITimespan
// ("HHHH:MM:SS.SS") for 1.2 and an ISO 8601 duration ("PTnHnMnS") for
// 2004. Internally everything is whole seconds.

// FormatTimespan renders seconds as SCORM 1.2 HH:MM:SS.
func FormatTimespan(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// ParseTimespan reads HH:MM:SS (hours may exceed two digits, an
// optional fractional second part is truncated).
func ParseTimespan(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed timespan %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("malformed timespan hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("malformed timespan minutes in %q", value)
	}
	secPart := parts[2]
	if dot := strings.IndexByte(secPart, '.'); dot >= 0 {
		secPart = secPart[:dot]
	}
	secs, err := strconv.Atoi(secPart)
	if err != nil || secs < 0 || secs > 59 {
		return 0, fmt.Errorf("malformed timespan seconds in %q", value)
	}
	return hours*3600 + minutes*60 + secs, nil
}

// FormatDuration renders seconds as a SCORM 2004 ISO 8601 duration.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("PT%dH%dM%dS", hours, minutes, secs)
}

// ParseDuration reads P[nD]T[nH][nM][nS] durations. Year and month
// designators are rejected: content reports session times, not
// calendar spans.
func ParseDuration(value string) (int, error) {
	s := strings.TrimSpace(value)
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	s = s[1:]

	total := 0
	inTime := false
	num := ""
	sawComponent := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9' || c == '.':
			num += string(c)
		case c == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("malformed duration %q", value)
			}
			inTime = true
		default:
			if num == "" {
				return 0, fmt.Errorf("malformed duration %q", value)
			}
			n, err := strconv.ParseFloat(num, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("malformed duration %q", value)
			}
			num = ""
			sawComponent = true
			switch {
			case c == 'D' && !inTime:
				total += int(n) * 86400
			case c == 'H' && inTime:
				total += int(n) * 3600
			case c == 'M' && inTime:
				total += int(n) * 60
			case c == 'S' && inTime:
				total += int(n)
			default:
				return 0, fmt.Errorf("unsupported designator %q in duration %q", string(c), value)
			}
		}
	}
	if num != "" || !sawComponent {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	return total, nil
}
