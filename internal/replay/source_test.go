package replay

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestSource_StreamsSentencesWithCRLF(t *testing.T) {
	recs := []Record{
		{At: 0, Sentence: []byte("$GPGGA,1")},
		{At: time.Millisecond, Sentence: []byte("$GPRMC,2")},
	}
	src := NewSource(context.Background(), recs, 100, false)
	defer src.Close()

	b, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(b) != "$GPGGA,1\r\n$GPRMC,2\r\n" {
		t.Fatalf("stream=%q", b)
	}

	if n, err := src.Write([]byte("$PMTK")); n != 5 || err != nil {
		t.Fatalf("Write()=%d,%v", n, err)
	}
	if src.Written() != 5 {
		t.Fatalf("Written()=%d want 5", src.Written())
	}
}

func TestSource_CloseStopsLoop(t *testing.T) {
	recs := []Record{{At: 0, Sentence: []byte("$A")}, {At: time.Hour, Sentence: []byte("$B")}}
	src := NewSource(context.Background(), recs, 1, true)

	buf := make([]byte, 16)
	n, err := src.Read(buf)
	if err != nil || string(buf[:n]) != "$A\r\n" {
		t.Fatalf("Read()=%q,%v", buf[:n], err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := src.Read(buf)
		done <- err
	}()
	_ = src.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected read error after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Read did not unblock after Close")
	}
}
