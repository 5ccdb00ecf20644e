package uart

import (
	"bytes"
	"testing"
)

func TestIndex(t *testing.T) {
	cases := []struct {
		hay, needle string
	}{
		{"", ""},
		{"abc", ""},
		{"", "a"},
		{"$GPGGA,123", "GGA"},
		{"aaaaab", "aab"},
		{"abababca", "ababca"},
		{"abcabd", "abd"},
		{"no match here", "xyz"},
		{"\r\n$GPRMC\r\n", "\r\n"},
		{"ab", "abc"},
	}
	for _, tc := range cases {
		got := Index([]byte(tc.hay), []byte(tc.needle))
		want := bytes.Index([]byte(tc.hay), []byte(tc.needle))
		if got != want {
			t.Fatalf("Index(%q,%q)=%d want %d", tc.hay, tc.needle, got, want)
		}
	}
}

func TestMatcher_StreamsAcrossChunksAndOverlaps(t *testing.T) {
	m := NewMatcher([]byte("aa"))
	hits := 0
	for _, b := range []byte("aaaa") {
		if m.Feed(b) {
			hits++
		}
	}
	if hits != 3 {
		t.Fatalf("hits=%d want 3", hits)
	}

	m = NewMatcher([]byte("*47"))
	for _, b := range []byte("15.6,M,,,*4") {
		if m.Feed(b) {
			t.Fatalf("unexpected early match")
		}
	}
	if !m.Feed('7') {
		t.Fatalf("expected match on final byte")
	}
}
