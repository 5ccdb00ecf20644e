package nmea

import "math"

// ParseFixed converts decimal text to an integer scaled by scale without
// going through floating point. scale is a power of ten; it bounds how many
// fractional digits are kept, and missing digits are padded with zeros:
//
//	ParseFixed("1234.5678", 1000000) == 1234567800
//
// Leading spaces and one sign are accepted. Scanning stops at the first
// character that does not fit. Results that do not fit in int32 wrap.
func ParseFixed(s string, scale int32) int32 {
	return int32(parseFixed64(s, int64(scale)))
}

func parseFixed64(s string, scale int64) int64 {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	sign := int64(1)
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		if s[i] == '-' {
			sign = -1
		}
		i++
	}

	var v int64
	for i < len(s) && isDigit(s[i]) {
		v = v*10 + int64(s[i]-'0')
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) && scale > 1 {
			v = v*10 + int64(s[i]-'0')
			scale /= 10
			i++
		}
	}
	for scale > 1 {
		v *= 10
		scale /= 10
	}
	return v * sign
}

// ParseCoordinateE7 converts a ddmm.mmmm / dddmm.mmmm field to degrees
// scaled by 1e7 using integer arithmetic only. S and W negate the result.
func ParseCoordinateE7(raw string, dir byte) int32 {
	v := parseFixed64(raw, 1000000) // ddmm.mmmmmm * 1e6
	deg := v / 100000000
	minE6 := v % 100000000
	e7 := deg*10000000 + minE6*10/60
	if dir == 'S' || dir == 'W' {
		e7 = -e7
	}
	return int32(e7)
}

func degreesE7(deg float64) int32 {
	return int32(math.Round(deg * 1e7))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
