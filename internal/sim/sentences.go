package sim

import (
	"fmt"
	"math"
	"time"
)

const feetPerMeter = 3.28084

// GGA renders st as a $GPGGA sentence with a checksum and no terminator.
func GGA(now time.Time, st State, satellites int) string {
	now = now.UTC()
	lat, ns := nmeaCoord(st.LatDeg, 2, 'N', 'S')
	lon, ew := nmeaCoord(st.LonDeg, 3, 'E', 'W')
	altM := float64(st.AltFeet) / feetPerMeter
	body := fmt.Sprintf("GPGGA,%s,%s,%c,%s,%c,1,%02d,0.9,%.1f,M,0.0,M,,",
		now.Format("150405.00"), lat, ns, lon, ew, satellites, altM)
	return withChecksum(body)
}

// RMC renders st as an active $GPRMC sentence.
func RMC(now time.Time, st State) string {
	now = now.UTC()
	lat, ns := nmeaCoord(st.LatDeg, 2, 'N', 'S')
	lon, ew := nmeaCoord(st.LonDeg, 3, 'E', 'W')
	body := fmt.Sprintf("GPRMC,%s,A,%s,%c,%s,%c,%.1f,%.1f,%s,,,A",
		now.Format("150405.00"), lat, ns, lon, ew, float64(st.GroundKt), st.TrackDeg, now.Format("020106"))
	return withChecksum(body)
}

// nmeaCoord formats decimal degrees as (d)ddmm.mmmm plus hemisphere.
func nmeaCoord(deg float64, degDigits int, pos, neg byte) (string, byte) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	// Round once in 1e-4 minute units so 59.99995' carries into the degrees.
	units := int64(math.Round(deg * 60 * 1e4))
	d := units / (60 * 1e4)
	rem := units % (60 * 1e4)
	return fmt.Sprintf("%0*d%02d.%04d", degDigits, d, rem/1e4, rem%1e4), hemi
}

func withChecksum(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}
