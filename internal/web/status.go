package web

import (
	"sync/atomic"
	"time"

	"gnss-ingest/internal/gps"
)

const serviceName = "gnss-ingest"

// Status collects what /api/status reports. The GPS section is read live
// from the provider on every request.
type Status struct {
	startUnixNano int64
	published     uint64
	lastPubNano   int64
	source        atomic.Value // string
	sinks         atomic.Value // []string
	gps           atomic.Value // func() gps.Snapshot
	net           atomic.Value // func() gps.NetSnapshot
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.source.Store("")
	s.sinks.Store([]string{})
	s.gps.Store(func() gps.Snapshot { return gps.Snapshot{} })
	return s
}

func (s *Status) SetStatic(source string, sinks []string) {
	if source != "" {
		s.source.Store(source)
	}
	if sinks != nil {
		s.sinks.Store(append([]string(nil), sinks...))
	}
}

func (s *Status) SetGPS(provider func() gps.Snapshot) {
	if provider != nil {
		s.gps.Store(provider)
	}
}

// SetNet adds the network source connection state to the report.
func (s *Status) SetNet(provider func() gps.NetSnapshot) {
	if provider != nil {
		s.net.Store(provider)
	}
}

// MarkPublished records a fix that was handed to the sinks.
func (s *Status) MarkPublished(nowUTC time.Time) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastPubNano, nowUTC.UnixNano())
	atomic.AddUint64(&s.published, 1)
}

type StatusSnapshot struct {
	Service          string           `json:"service"`
	NowUTC           string           `json:"now_utc"`
	UptimeSec        int64            `json:"uptime_sec"`
	Source           string           `json:"source"`
	Sinks            []string         `json:"sinks"`
	FixesPublished   uint64           `json:"fixes_published"`
	LastPublishedUTC string           `json:"last_published_utc,omitempty"`
	GPS              gps.Snapshot     `json:"gps"`
	Net              *gps.NetSnapshot `json:"net,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	provider := s.gps.Load().(func() gps.Snapshot)

	snap := StatusSnapshot{
		Service:        serviceName,
		NowUTC:         nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:      int64(nowUTC.Sub(start).Seconds()),
		Source:         s.source.Load().(string),
		Sinks:          s.sinks.Load().([]string),
		FixesPublished: atomic.LoadUint64(&s.published),
		GPS:            provider(),
	}
	if net, ok := s.net.Load().(func() gps.NetSnapshot); ok {
		ns := net()
		snap.Net = &ns
	}
	if last := atomic.LoadInt64(&s.lastPubNano); last != 0 {
		snap.LastPublishedUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
