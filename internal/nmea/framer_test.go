package nmea

import (
	"strings"
	"testing"
)

func feed(f *Framer, s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if line, ok := f.Push(s[i]); ok {
			out = append(out, line)
		}
	}
	return out
}

func TestFramer_SplitsSentences(t *testing.T) {
	f := NewFramer(0)
	got := feed(f, "noise"+sampleGGA+"\r\n"+sampleRMC+"\n\r\n")
	if len(got) != 2 || got[0] != sampleGGA || got[1] != sampleRMC {
		t.Fatalf("got=%q", got)
	}
}

func TestFramer_RestartsOnDollar(t *testing.T) {
	f := NewFramer(0)
	got := feed(f, "$GPGGA,1234$GPRMC,1\r\n")
	if len(got) != 1 || got[0] != "$GPRMC,1" {
		t.Fatalf("got=%q", got)
	}
	if f.Dropped != 1 {
		t.Fatalf("Dropped=%d want 1", f.Dropped)
	}
}

func TestFramer_DiscardsOverlong(t *testing.T) {
	f := NewFramer(16)
	got := feed(f, "$"+strings.Repeat("A", 40)+"\r\n$GPRMC\r\n")
	if len(got) != 1 || got[0] != "$GPRMC" {
		t.Fatalf("got=%q", got)
	}
	if f.Dropped != 1 {
		t.Fatalf("Dropped=%d want 1", f.Dropped)
	}
}

func TestFramer_IgnoresBareDollar(t *testing.T) {
	f := NewFramer(0)
	if got := feed(f, "$\r\n"); len(got) != 0 {
		t.Fatalf("got=%q", got)
	}
}

func TestFramer_ResetDropsPartialSentence(t *testing.T) {
	f := NewFramer(0)
	if got := feed(f, "$GPGGA,123456.00,3749.1234,N"); len(got) != 0 {
		t.Fatalf("got=%q", got)
	}
	f.Reset()
	got := feed(f, ",90.0,101221,,,A*68\r\n"+sampleRMC+"\r\n")
	if len(got) != 1 || got[0] != sampleRMC {
		t.Fatalf("got=%q want only %q", got, sampleRMC)
	}
	if f.Max() != MaxSentence {
		t.Fatalf("Max()=%d want %d", f.Max(), MaxSentence)
	}
}
