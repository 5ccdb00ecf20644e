package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gnss-ingest/internal/nmea"
	"gnss-ingest/internal/replay"
)

type captureSummary struct {
	Segments    int
	Sentences   int
	Invalid     int
	MaxDuration time.Duration
	TagCounts   map[string]int
	Last        nmea.CombinedFix
}

func summarizeCapture(records []replay.Record) captureSummary {
	s := captureSummary{TagCounts: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	origin := time.Duration(0)
	hasSentences := false
	for _, r := range records {
		if r.Sentence == nil {
			s.Segments++
			origin = r.At
			continue
		}
		hasSentences = true
		s.Sentences++

		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}

		tag, ok := sentenceTag(string(r.Sentence))
		if !ok {
			s.Invalid++
			continue
		}
		s.TagCounts[tag]++
		_, _ = nmea.Decode(string(r.Sentence), &s.Last)
	}
	if s.Segments == 0 && hasSentences {
		s.Segments = 1
	}
	return s
}

// sentenceTag returns the address field of a sentence without its start
// delimiter, e.g. "GPGGA".
func sentenceTag(sentence string) (string, bool) {
	if len(sentence) < 2 || (sentence[0] != '$' && sentence[0] != '!') {
		return "", false
	}
	tag := sentence[1:]
	if i := strings.IndexAny(tag, ",*"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return "", false
	}
	return tag, true
}

func printCaptureSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeCapture(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "sentences: %d\n", s.Sentences)
	fmt.Fprintf(w, "invalid_sentences: %d\n", s.Invalid)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	tags := make([]string, 0, len(s.TagCounts))
	for k := range s.TagCounts {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	fmt.Fprintf(w, "tag_counts:\n")
	for _, k := range tags {
		fmt.Fprintf(w, "  %s: %d\n", k, s.TagCounts[k])
	}

	fix := s.Last
	fmt.Fprintf(w, "last_fix: %s %s lat=%.6f lon=%.6f alt=%.1f sats=%d quality=%d valid=%t\n",
		fix.RMC.Date, fix.GGA.Time,
		fix.GGA.Position.Latitude, fix.GGA.Position.Longitude, fix.GGA.Altitude.Value,
		fix.GGA.Satellites, fix.GGA.FixQuality, fix.RMC.Valid,
	)
	return nil
}
