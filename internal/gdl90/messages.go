package gdl90

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// Signed 24-bit semicircles: 2^23 LSB per 180 degrees.
	semicirclesPer180 = 1 << 23
	e7Per180          = 180 * 10000000

	trackResolution = 360.0 / 256.0
)

// HeartbeatFrameAt builds the Heartbeat (0x00) for nowUTC.
func HeartbeatFrameAt(nowUTC time.Time, gpsValid bool, maintenanceRequired bool) []byte {
	msg := make([]byte, 7)
	msg[0] = 0x00

	// bit0 UAT initialized, bit4 address talkback, bit6 maintenance, bit7 GPS position valid.
	flags := byte(0x01) | byte(0x10)
	if gpsValid {
		flags |= 0x80
	}
	if maintenanceRequired {
		flags |= 0x40
	}
	msg[1] = flags

	nowUTC = nowUTC.UTC()
	midnight := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	seconds := uint32(nowUTC.Sub(midnight).Seconds())

	// Seconds since 0000Z: bit 16 rides in msg[2] bit 7, UTC OK in bit 0.
	msg[2] = byte(((seconds >> 16) << 7) | 0x01)
	msg[3] = byte(seconds & 0xFF)
	msg[4] = byte((seconds & 0xFFFF) >> 8)
	return Frame(msg)
}

// Ownship positions are in degrees scaled by 1e7, as nmea.Position.E7
// returns them.
type Ownship struct {
	ICAO        [3]byte
	LatE7       int32
	LonE7       int32
	AltFeet     int
	HaveNICNACp bool
	NIC         byte // 0-15
	NACp        byte // 0-15
	GroundKt    int
	TrackDeg    float64
	OnGround    bool
	Callsign    string
	Emitter     byte // 0x01 light aircraft when zero
}

// OwnshipReportFrame builds the Ownship Report (0x0A). Vertical velocity is
// always reported as unknown since GGA/RMC do not carry it.
func OwnshipReportFrame(o Ownship) []byte {
	msg := make([]byte, 28)
	msg[0] = 0x0A
	msg[1] = 0x00 // no alert, ADS-B with ICAO address

	copy(msg[2:5], o.ICAO[:])

	lat := encodeLatLon24(o.LatE7)
	copy(msg[5:8], lat[:])
	lon := encodeLatLon24(o.LonE7)
	copy(msg[8:11], lon[:])

	alt := encodeAltitude12(o.AltFeet)
	msg[11] = byte((alt >> 4) & 0xFF)
	msg[12] = byte((alt & 0x0F) << 4)
	// Misc nibble: bit0 true track valid, bit3 airborne.
	msg[12] |= 0x01
	if !o.OnGround {
		msg[12] |= 0x08
	}

	if o.HaveNICNACp {
		msg[13] = (o.NIC&0x0F)<<4 | o.NACp&0x0F
	} else {
		msg[13] = 0x80 | 0x08
	}

	gs := encodeU12(o.GroundKt)
	msg[14] = byte((gs & 0xFF0) >> 4)
	msg[15] = byte((gs & 0x00F) << 4)
	msg[15] |= 0x08 // vertical velocity 0x800: unknown
	msg[16] = 0x00

	msg[17] = encodeTrack8(o.TrackDeg)

	emitter := o.Emitter
	if emitter == 0 {
		emitter = 0x01
	}
	msg[18] = emitter
	copy(msg[19:27], sanitizeCallsign(o.Callsign))
	msg[27] = 0x00
	return Frame(msg)
}

// OwnshipGeoAltitudeFrame builds the Ownship Geometric Altitude (0x0B) in
// 5 ft steps. vfomM < 0 reports the vertical figure of merit as unknown.
func OwnshipGeoAltitudeFrame(altFeet int, vfomM int) []byte {
	msg := make([]byte, 5)
	msg[0] = 0x0B
	alt := int16(clamp(altFeet/5, math.MinInt16, math.MaxInt16))
	msg[1] = byte(uint16(alt) >> 8)
	msg[2] = byte(uint16(alt) & 0xFF)

	vfom := uint16(0x7FFF)
	if vfomM >= 0 {
		vfom = uint16(clamp(vfomM, 0, 0x7FFE))
	}
	msg[3] = byte(vfom >> 8)
	msg[4] = byte(vfom & 0xFF)
	return Frame(msg)
}

// ForeFlightIDFrame builds the ForeFlight ID message (0x65, subtype 0) that
// names the device in EFB apps.
func ForeFlightIDFrame(shortName string, longName string) []byte {
	msg := make([]byte, 39)
	msg[0] = 0x65
	msg[1] = 0x00 // ID subtype
	msg[2] = 0x01 // version
	for i := 3; i <= 10; i++ {
		msg[i] = 0xFF // serial unknown
	}

	shortName = strings.TrimSpace(shortName)
	if shortName == "" {
		shortName = "GNSS"
	}
	if len(shortName) > 8 {
		shortName = shortName[:8]
	}
	copy(msg[11:19], shortName)

	longName = strings.TrimSpace(longName)
	if longName == "" {
		longName = "gnss-ingest"
	}
	if len(longName) > 16 {
		longName = longName[:16]
	}
	copy(msg[19:35], longName)

	msg[38] = 0x01 // geometric altitude is MSL
	return Frame(msg)
}

func ParseICAOHex(s string) ([3]byte, error) {
	var out [3]byte
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if len(s) != 6 {
		return out, fmt.Errorf("icao must be 6 hex chars")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func encodeLatLon24(e7 int32) [3]byte {
	// Truncates toward zero.
	v := int64(e7) * semicirclesPer180 / e7Per180
	u := uint32(int32(v)) & 0x00FFFFFF
	return [3]byte{byte(u >> 16), byte(u >> 8), byte(u)}
}

// encodeAltitude12 uses 25 ft steps offset by +1000 ft; 0xFFF is invalid.
func encodeAltitude12(altFeet int) uint16 {
	if altFeet < -1000 || altFeet > 101350 {
		return 0x0FFF
	}
	return uint16((altFeet+1000)/25) & 0x0FFF
}

func encodeU12(v int) uint16 {
	return uint16(clamp(v, 0, 0xFFF))
}

func encodeTrack8(deg float64) byte {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// 360 wraps to 0.
	return byte(int(math.Floor((deg+trackResolution/2)/trackResolution)) & 0xFF)
}

func sanitizeCallsign(s string) string {
	if s == "" {
		s = "GNSS"
	}
	s = strings.ToUpper(s)
	if len(s) > 8 {
		s = s[:8]
	}
	b := []byte(s)
	for i, c := range b {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c == ' ') {
			b[i] = ' '
		}
	}
	for len(b) < 8 {
		b = append(b, ' ')
	}
	return string(b)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
