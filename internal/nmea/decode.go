// Package nmea decodes GGA and RMC sentences into fixed-layout records.
//
// Decoding is best effort. A sentence is split on commas and a per-sentence
// table maps field positions to parse functions. Missing, empty or
// malformed fields never fail the call; the destination keeps whatever it
// held for those attributes. Checksums are not verified.
package nmea

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument is returned for a nil destination or an absent
	// (empty) sentence. The destination is not touched.
	ErrInvalidArgument = errors.New("nmea: invalid argument")
	// ErrUnsupported is returned by Decode for sentence types other than
	// GGA and RMC.
	ErrUnsupported = errors.New("nmea: unsupported sentence")
)

const dateCentury = 2000

// field binds a zero-based field position to a parser writing into T.
type field[T any] struct {
	index int
	name  string
	parse func(dst *T, v string)
}

func walk[T any](sentence string, dst *T, layout []field[T]) {
	fields := strings.Split(strings.TrimRight(sentence, "\r\n"), ",")
	for _, f := range layout {
		if f.index >= len(fields) {
			continue
		}
		v := fields[f.index]
		if v == "" {
			continue
		}
		f.parse(dst, v)
	}
}

// coordScan collects a coordinate magnitude and its hemisphere so they can
// be combined once both fields have been read.
type coordScan struct {
	raw    string
	dir    byte
	hasRaw bool
	hasDir bool
}

func (c *coordScan) apply(value *float64, hemi *byte) {
	if c.hasDir {
		*hemi = c.dir
	}
	if c.hasRaw {
		*value = parseCoordinate(c.raw, *hemi)
	}
}

type ggaScan struct {
	rec      *FixRecord
	lat, lon coordScan
}

// GGA: 0 tag, 1 time, 2 lat, 3 N/S, 4 lon, 5 E/W, 6 fix quality,
// 7 satellites, 8 HDOP, 9 altitude, 10 altitude unit.
var ggaLayout = []field[ggaScan]{
	{1, "time", func(s *ggaScan, v string) { parseTime(&s.rec.Time, v) }},
	{2, "latitude", func(s *ggaScan, v string) { s.lat.raw, s.lat.hasRaw = v, true }},
	{3, "ns", func(s *ggaScan, v string) { s.lat.dir, s.lat.hasDir = v[0], true }},
	{4, "longitude", func(s *ggaScan, v string) { s.lon.raw, s.lon.hasRaw = v, true }},
	{5, "ew", func(s *ggaScan, v string) { s.lon.dir, s.lon.hasDir = v[0], true }},
	{6, "fix_quality", func(s *ggaScan, v string) { s.rec.FixQuality = int8(leadingUint(v)) }},
	{7, "satellites", func(s *ggaScan, v string) { s.rec.Satellites = uint8(leadingUint(v)) }},
	{8, "hdop", func(s *ggaScan, v string) { s.rec.HDOP = leadingFloat(v) }},
	{9, "altitude", func(s *ggaScan, v string) { s.rec.Altitude.Value = leadingFloat(v) }},
	{10, "altitude_unit", func(s *ggaScan, v string) { s.rec.Altitude.Unit = v[0] }},
}

// RMC (NMEA 0183 v2.3): 0 tag, 1 time, 2 status, 3-6 position, 7 speed,
// 8 course, 9 date. The position is carried by GGA and is not stored here.
var rmcLayout = []field[NavigationRecord]{
	{2, "status", func(r *NavigationRecord, v string) { r.Valid = v[0] == 'A' }},
	{7, "speed_knots", func(r *NavigationRecord, v string) { r.SpeedKnots = leadingFloat(v) }},
	{8, "course_deg", func(r *NavigationRecord, v string) { r.CourseDeg = leadingFloat(v) }},
	{9, "date", func(r *NavigationRecord, v string) { parseDate(&r.Date, v) }},
}

func DecodeGGA(sentence string, rec *FixRecord) error {
	if rec == nil || sentence == "" {
		return ErrInvalidArgument
	}
	s := ggaScan{rec: rec}
	walk(sentence, &s, ggaLayout)
	s.lat.apply(&rec.Position.Latitude, &rec.Position.NS)
	s.lon.apply(&rec.Position.Longitude, &rec.Position.EW)
	return nil
}

func DecodeRMC(sentence string, rec *NavigationRecord) error {
	if rec == nil || sentence == "" {
		return ErrInvalidArgument
	}
	walk(sentence, rec, rmcLayout)
	return nil
}

// Decode dispatches on the sentence tag (any talker) and decodes into the
// matching half of fix.
func Decode(sentence string, fix *CombinedFix) (Kind, error) {
	if fix == nil || sentence == "" {
		return KindUnknown, ErrInvalidArgument
	}
	switch k := SentenceKind(sentence); k {
	case KindGGA:
		return k, DecodeGGA(sentence, &fix.GGA)
	case KindRMC:
		return k, DecodeRMC(sentence, &fix.RMC)
	default:
		return k, ErrUnsupported
	}
}

// Populate decodes one GGA and one RMC sentence into fix.
func Populate(gga, rmc string, fix *CombinedFix) error {
	if fix == nil {
		return ErrInvalidArgument
	}
	if err := DecodeGGA(gga, &fix.GGA); err != nil {
		return err
	}
	return DecodeRMC(rmc, &fix.RMC)
}

// SentenceKind classifies a sentence by the last three characters of its
// tag, so GPGGA, GNGGA and friends all map to KindGGA.
func SentenceKind(sentence string) Kind {
	tag := sentence
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.TrimLeft(tag, "$!")
	if len(tag) < 3 {
		return KindUnknown
	}
	switch strings.ToUpper(tag[len(tag)-3:]) {
	case "GGA":
		return KindGGA
	case "RMC":
		return KindRMC
	default:
		return KindUnknown
	}
}

// parseTime reads hhmmss positionally. Anything after the sixth character
// (fractional seconds) is ignored. Digits are not validated.
func parseTime(t *TimeOfDay, v string) {
	if len(v) < 6 {
		return
	}
	t.Hour = digitPair(v[0], v[1])
	t.Minute = digitPair(v[2], v[3])
	t.Second = digitPair(v[4], v[5])
}

// parseDate reads ddmmyy positionally.
func parseDate(d *CalendarDate, v string) {
	if len(v) < 6 {
		return
	}
	d.Day = digitPair(v[0], v[1])
	d.Month = digitPair(v[2], v[3])
	d.Year = dateCentury + uint16(digitPair(v[4], v[5]))
}

func digitPair(a, b byte) uint8 {
	return (a-'0')*10 + (b - '0')
}

// parseCoordinate converts ddmm.mmmm to signed decimal degrees.
func parseCoordinate(raw string, hemi byte) float64 {
	v := leadingFloat(raw)
	deg := math.Floor(v / 100)
	minutes := v - deg*100
	dec := deg + minutes/60
	if hemi == 'S' || hemi == 'W' {
		dec = -dec
	}
	return dec
}

// leadingFloat parses the longest decimal prefix of s, like C atof. It
// returns 0 when there is none.
func leadingFloat(s string) float64 {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0
	}
	return v
}

// leadingUint parses the leading run of decimal digits of s.
func leadingUint(s string) uint64 {
	var v uint64
	for i := 0; i < len(s) && isDigit(s[i]); i++ {
		v = v*10 + uint64(s[i]-'0')
	}
	return v
}

// ParseCoordinate is the floating point counterpart of ParseCoordinateE7.
func ParseCoordinate(raw string, dir byte) float64 {
	return parseCoordinate(raw, dir)
}
