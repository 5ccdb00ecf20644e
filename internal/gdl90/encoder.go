package gdl90

import (
	"math"
	"time"

	"gnss-ingest/internal/nmea"
)

const (
	feetPerMeter = 3.28084

	// uereM scales HDOP into an estimated 95% horizontal accuracy.
	uereM = 4.0
)

// Encoder turns decoded fixes into the frames an EFB expects once per
// second: ID, heartbeat and, with a valid fix, ownship report plus
// geometric altitude.
type Encoder struct {
	ICAO     [3]byte
	Callsign string
}

func (e Encoder) Frames(nowUTC time.Time, fix nmea.CombinedFix, valid bool) [][]byte {
	frames := [][]byte{
		ForeFlightIDFrame(e.Callsign, "gnss-ingest"),
		HeartbeatFrameAt(nowUTC, valid, false),
	}
	if !valid {
		return frames
	}
	o := e.Ownship(fix)
	frames = append(frames, OwnshipReportFrame(o), OwnshipGeoAltitudeFrame(o.AltFeet, -1))
	return frames
}

// Ownship maps a fix onto an ownship report. Altitude is the GGA MSL
// altitude; a unit other than meters is taken as feet.
func (e Encoder) Ownship(fix nmea.CombinedFix) Ownship {
	alt := fix.GGA.Altitude.Value
	if fix.GGA.Altitude.Unit == 'M' || fix.GGA.Altitude.Unit == 0 {
		alt *= feetPerMeter
	}
	lat, lon := fix.GGA.Position.E7()
	o := Ownship{
		ICAO:     e.ICAO,
		LatE7:    lat,
		LonE7:    lon,
		AltFeet:  int(math.Round(alt)),
		GroundKt: int(math.Round(fix.RMC.SpeedKnots)),
		TrackDeg: fix.RMC.CourseDeg,
		Callsign: e.Callsign,
	}
	if fix.GGA.HDOP > 0 {
		o.HaveNICNACp = true
		o.NIC = 8
		o.NACp = NACpFromHorizontalAccuracyMeters(fix.GGA.HDOP * uereM)
	}
	return o
}

// NACpFromHorizontalAccuracyMeters maps an estimated 95% horizontal
// accuracy to a NACp category.
func NACpFromHorizontalAccuracyMeters(accuracyM float64) byte {
	switch {
	case accuracyM <= 0:
		return 0
	case accuracyM < 3:
		return 11
	case accuracyM < 10:
		return 10
	case accuracyM < 30:
		return 9
	case accuracyM < 92.6:
		return 8
	case accuracyM < 185.2:
		return 7
	case accuracyM < 555.6:
		return 6
	default:
		return 0
	}
}
