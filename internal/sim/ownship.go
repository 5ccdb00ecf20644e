// Package sim generates a synthetic receiver: a deterministic ownship track
// rendered as GGA and RMC sentences.
package sim

import (
	"math"
	"time"
)

type Ownship struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltFeet      int
	GroundKt     int
	RadiusNm     float64
	Period       time.Duration
}

// State is the ownship at one instant.
type State struct {
	LatDeg   float64
	LonDeg   float64
	TrackDeg float64
	AltFeet  int
	GroundKt int
}

// At returns position, track and a slow altitude oscillation around AltFeet.
func (s Ownship) At(now time.Time) State {
	lat, lon, trk := s.Position(now)
	st := State{LatDeg: lat, LonDeg: lon, TrackDeg: trk, GroundKt: s.GroundKt}
	if st.GroundKt <= 0 {
		st.GroundKt = 90
	}

	baseAlt := s.AltFeet
	if baseAlt == 0 {
		baseAlt = 3000
	}
	// Vertical period is decoupled from horizontal to avoid repetitive sync.
	vp := s.period() / 2
	if vp < 30*time.Second {
		vp = 30 * time.Second
	}
	phase := float64(now.UnixNano()%vp.Nanoseconds()) / float64(vp.Nanoseconds())
	st.AltFeet = int(math.Round(float64(baseAlt) + 500*math.Sin(2*math.Pi*phase)))
	return st
}

// Position follows a figure-eight (Lissajous) path that stays within
// RadiusNm of the center:
//
//	x = cos(2πt)
//	y = 0.5*sin(4πt)
func (s Ownship) Position(now time.Time) (latDeg, lonDeg, trackDeg float64) {
	period := s.period()
	radiusNm := s.RadiusNm
	if radiusNm <= 0 {
		radiusNm = 0.5
	}
	radiusDeg := radiusNm / 60.0 // ~60 NM per degree of latitude

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = s.CenterLatDeg + radiusDeg*y
	lonDeg = s.CenterLonDeg + (radiusDeg*x)/math.Cos(s.CenterLatDeg*math.Pi/180.0)

	// atan2(east, north) of the instantaneous velocity.
	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	trackDeg = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)
	return latDeg, lonDeg, trackDeg
}

func (s Ownship) period() time.Duration {
	if s.Period <= 0 {
		return 120 * time.Second
	}
	return s.Period
}
