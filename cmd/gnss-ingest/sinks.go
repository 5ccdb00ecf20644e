package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gnss-ingest/internal/gdl90"
	"gnss-ingest/internal/gps"
	"gnss-ingest/internal/web"
)

type sink struct {
	name    string
	publish func(v any) error
	failing bool
}

// fanout delivers fix snapshots to the configured sinks off the acquisition
// goroutine. When a sink is slow, newer snapshots are dropped at Offer.
type fanout struct {
	sinks   []*sink
	ch      chan gps.Snapshot
	status  *web.Status
	dropped atomic.Uint64
}

func newFanout(status *web.Status, queue int) *fanout {
	if queue <= 0 {
		queue = 8
	}
	return &fanout{ch: make(chan gps.Snapshot, queue), status: status}
}

func (f *fanout) add(name string, publish func(v any) error) {
	f.sinks = append(f.sinks, &sink{name: name, publish: publish})
}

func (f *fanout) names() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.name)
	}
	return out
}

// Offer queues a snapshot without blocking.
func (f *fanout) Offer(s gps.Snapshot) {
	select {
	case f.ch <- s:
	default:
		if f.dropped.Add(1) == 1 {
			log.Printf("sink queue full; dropping snapshots")
		}
	}
}

func (f *fanout) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-f.ch:
			f.deliver(s)
		}
	}
}

func (f *fanout) deliver(s gps.Snapshot) {
	for _, sk := range f.sinks {
		err := sk.publish(s)
		switch {
		case err != nil && !sk.failing:
			log.Printf("sink publish failed sink=%s: %v", sk.name, err)
			sk.failing = true
		case err == nil && sk.failing:
			log.Printf("sink recovered sink=%s", sk.name)
			sk.failing = false
		}
	}
	if f.status != nil {
		f.status.MarkPublished(time.Now().UTC())
	}
}

// gdl90Sink encodes each snapshot and sends every frame as its own datagram.
func gdl90Sink(enc gdl90.Encoder, send func([]byte) error) func(v any) error {
	return func(v any) error {
		s, ok := v.(gps.Snapshot)
		if !ok {
			return fmt.Errorf("gdl90 sink: unexpected %T", v)
		}
		for _, frame := range enc.Frames(time.Now().UTC(), s.Fix, s.Valid) {
			if err := send(frame); err != nil {
				return err
			}
		}
		return nil
	}
}
