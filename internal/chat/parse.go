package chat

import (
	"errors"
	"strconv"
	"strings"
)

// errBadFarmerID is returned when a line expected to be an identifier is not
// a positive integer.
var errBadFarmerID = errors.New("invalid farmer ID")

// parseFarmerID parses a line as a positive integer identifier.
func parseFarmerID(line string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || id <= 0 {
		return 0, errBadFarmerID
	}
	return id, nil
}

// parseReadings parses comma-separated key:value sensor pairs, e.g.
// "moisture:12, temp:30". Malformed pairs are silently dropped.
func parseReadings(line string) map[string]float64 {
	readings := make(map[string]float64)
	for _, part := range strings.Split(line, ",") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if key == "" || err != nil {
			continue
		}
		readings[key] = num
	}
	return readings
}

// isCancel reports whether a payload line is the literal CANCEL keyword.
func isCancel(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "CANCEL")
}
