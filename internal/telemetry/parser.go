package telemetry

import (
	"strconv"
	"strings"
)

// frameMarker identifies a sensor frame on the wire. Lines without it (boot
// banners, debug noise, partial frames) are discarded.
const frameMarker = "POT"

// jointKeys are the wire keys of the six joints, in joint order.
var jointKeys = [...]string{"POT0", "POT1", "POT2", "POT3", "POT4", "POT5"}

// isFrame reports whether the line carries sensor readings.
func isFrame(line string) bool {
	return strings.Contains(line, frameMarker)
}

// parseReadings splits a frame line into whitespace-separated KEY:VALUE
// tokens. Tokens without a separator, with an empty key or with a
// non-integer value are skipped individually; a malformed token never
// invalidates the rest of the line. Unknown keys are kept in the result but
// are not read by the pose derivation.
func parseReadings(line string) map[string]int {
	readings := make(map[string]int)
	for _, token := range strings.Fields(line) {
		key, value, ok := strings.Cut(token, ":")
		if !ok || key == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		readings[key] = n
	}
	return readings
}

// frameFromReadings builds the fixed six-slot frame from parsed readings.
// Missing joints default to zero. Raw values are taken as-is, without
// clamping to the nominal 0-1023 range.
func frameFromReadings(readings map[string]int) RawFrame {
	var frame RawFrame
	for i, key := range jointKeys {
		frame.readings[i] = readings[key]
	}
	return frame
}
