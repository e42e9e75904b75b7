package event

import (
	"regexp"
	"strconv"
)

// telemetryField matches one key=value token. Values stop at whitespace
// or a closing angle bracket.
var telemetryField = regexp.MustCompile(`(\w+)=([^\s>]+)`)

// Field is one key/value pair from a telemetry reading.
type Field struct {
	Key   string
	Value string
}

// Float returns the value as a float64, if it parses as one.
func (f Field) Float() (float64, bool) {
	v, err := strconv.ParseFloat(f.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseTelemetry extracts key=value tokens from a telemetry reading in the
// order they appear. Text that does not match the token pattern is skipped.
func ParseTelemetry(text string) []Field {
	matches := telemetryField.FindAllStringSubmatch(text, -1)
	fields := make([]Field, 0, len(matches))
	for _, m := range matches {
		fields = append(fields, Field{Key: m[1], Value: m[2]})
	}
	return fields
}
