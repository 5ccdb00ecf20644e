package replay

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"gnss-ingest/internal/nmea"
)

func TestRecordReplay_RoundTripSentencesDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	now := time.Now()
	in := []string{
		"$GPGGA,123456.00,3749.1234,N,12225.5678,W,1,08,1.0,15.6,M,,,*47",
		"$GPRMC,123456.00,A,3749.1234,N,12225.5678,W,0.5,90.0,101221,,,A*68",
	}
	for _, s := range in {
		if err := w.WriteSentence(now, s); err != nil {
			_ = w.Close()
			t.Fatalf("WriteSentence() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	var out []string
	var fix nmea.CombinedFix
	fs := &fakeSleeper{}
	err = Play(recs, 1.0, false, fs, func(s []byte) error {
		out = append(out, string(s))
		_, err := nmea.Decode(string(s), &fix)
		return err
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("sentences=%q want %q", out, in)
	}
	if fix.GGA.Satellites != 8 || fix.RMC.Date.Year != 2021 {
		t.Fatalf("fix=%+v", fix)
	}
}
