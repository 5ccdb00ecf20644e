package sim

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSource_EmitsGGAThenRMC(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	src := newSource(context.Background(), Ownship{CenterLatDeg: 45, CenterLonDeg: -122}, 10*time.Millisecond, func() time.Time { return fixed })
	defer src.Close()

	r := bufio.NewReader(src)
	var lines []string
	for i := 0; i < 4; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString() error: %v", err)
		}
		if !strings.HasSuffix(line, "\r\n") {
			t.Fatalf("line=%q missing CRLF", line)
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	if !strings.HasPrefix(lines[0], "$GPGGA,080000.00,") || !strings.HasPrefix(lines[1], "$GPRMC,080000.00,A,") {
		t.Fatalf("lines=%q", lines)
	}
	if lines[2] != lines[0] || lines[3] != lines[1] {
		t.Fatalf("expected identical sentences for a fixed clock: %q", lines)
	}

	if n, err := src.Write([]byte("$PMTK")); n != 5 || err != nil {
		t.Fatalf("Write()=%d,%v", n, err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := r.ReadString('\n'); err == nil {
		t.Fatalf("expected read error after Close")
	}
}
