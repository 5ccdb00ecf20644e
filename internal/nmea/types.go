package nmea

import "fmt"

// TimeOfDay is UTC time as reported in the sentence. Values are not range
// checked.
type TimeOfDay struct {
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
	Second uint8 `json:"second"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// CalendarDate carries a four digit year built from the sentence's two
// digit year plus 2000.
type CalendarDate struct {
	Day   uint8  `json:"day"`
	Month uint8  `json:"month"`
	Year  uint16 `json:"year"`
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type Altitude struct {
	Value float64 `json:"value"`
	Unit  byte    `json:"unit"` // normally 'M'
}

// Position holds decimal degrees with the hemisphere already folded into
// the sign. NS and EW keep the last hemisphere characters seen.
type Position struct {
	Latitude  float64 `json:"lat_deg"`
	Longitude float64 `json:"lon_deg"`
	NS        byte    `json:"ns"`
	EW        byte    `json:"ew"`
}

// E7 returns the position as integers scaled by 1e7.
func (p Position) E7() (lat, lon int32) {
	return degreesE7(p.Latitude), degreesE7(p.Longitude)
}

// FixRecord is decoded from GGA.
type FixRecord struct {
	Time       TimeOfDay `json:"time"`
	Position   Position  `json:"position"`
	FixQuality int8      `json:"fix_quality"` // 0 = no fix
	Satellites uint8     `json:"satellites"`
	HDOP       float64   `json:"hdop"`
	Altitude   Altitude  `json:"altitude"`
}

// NavigationRecord is decoded from RMC.
type NavigationRecord struct {
	Date       CalendarDate `json:"date"`
	Valid      bool         `json:"valid"`
	SpeedKnots float64      `json:"speed_knots"`
	CourseDeg  float64      `json:"course_deg"`
}

// CombinedFix accumulates one GGA and one RMC into a positioning snapshot.
// It is reused across decode calls; readers must wait until both halves
// have been decoded.
type CombinedFix struct {
	GGA FixRecord        `json:"gga"`
	RMC NavigationRecord `json:"rmc"`
}

// Reset zeroes the accumulator.
func (f *CombinedFix) Reset() {
	*f = CombinedFix{}
}

type Kind int

const (
	KindUnknown Kind = iota
	KindGGA
	KindRMC
)

func (k Kind) String() string {
	switch k {
	case KindGGA:
		return "GGA"
	case KindRMC:
		return "RMC"
	default:
		return "unknown"
	}
}
