package gdl90

import (
	"testing"
	"time"

	"gnss-ingest/internal/nmea"
)

func TestEncoder_Frames(t *testing.T) {
	var fix nmea.CombinedFix
	if err := nmea.Populate(
		"$GPGGA,123456.00,4500.0000,N,09000.0000,W,1,08,1.0,304.8,M,,,*47",
		"$GPRMC,123456.00,A,,,,,100.0,90.0,101221,,,A*68",
		&fix,
	); err != nil {
		t.Fatalf("Populate() error: %v", err)
	}

	enc := Encoder{ICAO: [3]byte{0xF0, 0x00, 0x00}, Callsign: "TEST"}
	now := time.Date(2021, 12, 10, 12, 34, 56, 0, time.UTC)

	frames := enc.Frames(now, fix, true)
	if len(frames) != 4 {
		t.Fatalf("frames=%d want 4", len(frames))
	}
	ids := []byte{0x65, 0x00, 0x0A, 0x0B}
	for i, f := range frames {
		msg := unframeAndCheckCRC(t, f)
		if msg[0] != ids[i] {
			t.Fatalf("frame %d id=0x%02X want 0x%02X", i, msg[0], ids[i])
		}
	}

	own := enc.Ownship(fix)
	if own.AltFeet != 1000 || own.GroundKt != 100 || own.TrackDeg != 90 {
		t.Fatalf("ownship=%+v", own)
	}
	if own.LatE7 != 450000000 || own.LonE7 != -900000000 {
		t.Fatalf("lat/lon e7=%d,%d want 450000000,-900000000", own.LatE7, own.LonE7)
	}
	if !own.HaveNICNACp || own.NACp != 10 {
		t.Fatalf("nacp=%d want 10 for hdop 1.0", own.NACp)
	}

	if frames := enc.Frames(now, fix, false); len(frames) != 2 {
		t.Fatalf("invalid fix frames=%d want 2", len(frames))
	}
}

func TestNACpFromHorizontalAccuracyMeters(t *testing.T) {
	cases := map[float64]byte{0: 0, 2: 11, 5: 10, 20: 9, 50: 8, 100: 7, 300: 6, 1000: 0}
	for acc, want := range cases {
		if got := NACpFromHorizontalAccuracyMeters(acc); got != want {
			t.Fatalf("NACp(%v)=%d want %d", acc, got, want)
		}
	}
}
