package normalize

import (
	"math"
	"strconv"
	"strings"
)

// ParseMetric converts display counts like "1.2K", "5.7M", "1B", "1,234" or "423" to integers.
// Anything unparsable or negative yields 0.
func ParseMetric(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// "1,234 likes" -> "1,234"
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1e3
	case "M":
		multiplier = 1e6
	case "B":
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	return int(math.Round(value * multiplier))
}
