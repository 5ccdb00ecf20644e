package sim

import (
	"context"
	"io"
	"time"
)

// Source emits one GGA and one RMC per interval as a CR LF terminated byte
// stream for a uart.Link. Writes are discarded.
type Source struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
}

func NewSource(ctx context.Context, own Ownship, interval time.Duration) *Source {
	return newSource(ctx, own, interval, time.Now)
}

func newSource(ctx context.Context, own Ownship, interval time.Duration, now func() time.Time) *Source {
	if interval <= 0 {
		interval = time.Second
	}
	runCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			ts := now()
			st := own.At(ts)
			if _, err := io.WriteString(pw, GGA(ts, st, 8)+"\r\n"+RMC(ts, st)+"\r\n"); err != nil {
				return
			}
			select {
			case <-runCtx.Done():
				_ = pw.Close()
				return
			case <-t.C:
			}
		}
	}()
	return &Source{pr: pr, cancel: cancel}
}

func (s *Source) Read(p []byte) (int, error) { return s.pr.Read(p) }

func (s *Source) Write(p []byte) (int, error) { return len(p), nil }

func (s *Source) Close() error {
	s.cancel()
	return s.pr.Close()
}
