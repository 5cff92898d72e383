package qasm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// piExpr matches pi, 2pi, 2*pi, pi/2, 3pi/4, -pi, -3*pi/4 and similar.
var piExpr = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// parseParam evaluates one rotation parameter: a plain float or a pi
// expression.
func parseParam(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	m := piExpr.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	coeff := 1.0
	if m[2] != "" {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		coeff = v
	}
	value := coeff * math.Pi
	if m[3] != "" {
		denom, err := strconv.ParseFloat(m[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		value /= denom
	}
	if m[1] == "-" {
		value = -value
	}
	return value, true
}
