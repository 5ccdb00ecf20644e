package replay

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0, $GPGGA,123456.00,3749.1234,N,12225.5678,W,1,08,1.0,15.6,M,,,*47
10,$GPRMC,123456.00,A,,,,,0.5,90.0,101221,,,A*68
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Sentence != nil {
		t.Fatalf("expected START marker (nil sentence), got %q", recs[0].Sentence)
	}
	if recs[1].At != 0 {
		t.Fatalf("expected At=0, got %s", recs[1].At)
	}
	if string(recs[1].Sentence) != "$GPGGA,123456.00,3749.1234,N,12225.5678,W,1,08,1.0,15.6,M,,,*47" {
		t.Fatalf("unexpected sentence 1: %q", recs[1].Sentence)
	}
	if recs[2].At != 10*time.Nanosecond {
		t.Fatalf("expected At=10ns, got %s", recs[2].At)
	}
	if !strings.HasPrefix(string(recs[2].Sentence), "$GPRMC,") {
		t.Fatalf("unexpected sentence 2: %q", recs[2].Sentence)
	}
}

func TestReaderReadAll_InvalidLine(t *testing.T) {
	cases := []string{
		"not-a-valid-line\n",
		"abc,$GPGGA\n",
		"-5,$GPGGA\n",
		"5,\n",
	}
	for _, in := range cases {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("ReadAll(%q): expected error", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var got []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second, Sentence: nil},
		{At: 1 * time.Second, Sentence: []byte("$A")},
		{At: 1*time.Second + 100*time.Nanosecond, Sentence: []byte("$B")},
		{At: 2 * time.Second, Sentence: nil},
		{At: 2*time.Second + 50*time.Nanosecond, Sentence: []byte("$C")},
	}

	err := Play(recs, 1.0, false, fs, func(s []byte) error {
		got = append(got, string(s))
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if !reflect.DeepEqual(got, []string{"$A", "$B", "$C"}) {
		t.Fatalf("sentences = %q", got)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Sentence: []byte("$A")},
		{At: 100 * time.Nanosecond, Sentence: []byte("$B")},
	}

	err := Play(recs, 2.0, false, fs, func([]byte) error { return nil })
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_InvalidArgs(t *testing.T) {
	recs := []Record{{At: 0, Sentence: []byte("$A")}}
	if err := Play(recs, 0, false, nil, func([]byte) error { return nil }); err == nil {
		t.Fatalf("expected speed error")
	}
	if err := Play(recs, 1, false, nil, nil); err == nil {
		t.Fatalf("expected callback error")
	}
	if err := Play(nil, 1, false, nil, func([]byte) error { return nil }); err == nil {
		t.Fatalf("expected no-records error")
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "out.log")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)

	if err := w.WriteSentence(time.Unix(0, 20), "$GPGGA,1\r\n"); err != nil {
		t.Fatalf("WriteSentence() error: %v", err)
	}
	if err := w.WriteSentence(time.Unix(0, 30), "$GP\nGGA"); err == nil {
		t.Fatalf("expected error for embedded line break")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteSentence(time.Unix(0, 40), "$X"); err == nil {
		t.Fatalf("expected error after Close")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(b) != "START\n20,$GPGGA,1\n" {
		t.Fatalf("unexpected file contents: %q", string(b))
	}
}

func TestAppendWriter_KeepsEarlierSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	for i := 0; i < 2; i++ {
		w, err := AppendWriter(path)
		if err != nil {
			t.Fatalf("AppendWriter() error: %v", err)
		}
		if err := w.WriteSentence(w.start, "$GPRMC"); err != nil {
			t.Fatalf("WriteSentence() error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(b) != "START\n0,$GPRMC\nSTART\n0,$GPRMC\n" {
		t.Fatalf("unexpected file contents: %q", string(b))
	}
}
