package replay

import (
	"context"
	"io"
	"sync/atomic"
	"time"
)

// Source plays a capture as a byte stream, one sentence per line with CR LF
// terminators, so it can stand in for a serial port behind a uart.Link.
// Anything written to it is counted and discarded.
type Source struct {
	pr *io.PipeReader

	cancel  context.CancelFunc
	written atomic.Uint64
}

func NewSource(ctx context.Context, records []Record, speed float64, loop bool) *Source {
	runCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	s := &Source{pr: pr, cancel: cancel}

	go func() {
		err := Play(records, speed, loop, ctxSleeper{runCtx}, func(sentence []byte) error {
			if err := runCtx.Err(); err != nil {
				return err
			}
			line := make([]byte, 0, len(sentence)+2)
			line = append(line, sentence...)
			line = append(line, '\r', '\n')
			_, err := pw.Write(line)
			return err
		})
		if err == nil || runCtx.Err() != nil {
			_ = pw.Close()
			return
		}
		_ = pw.CloseWithError(err)
	}()
	return s
}

func (s *Source) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

func (s *Source) Write(p []byte) (int, error) {
	s.written.Add(uint64(len(p)))
	return len(p), nil
}

// Written reports how many bytes have been sent towards the receiver.
func (s *Source) Written() uint64 { return s.written.Load() }

func (s *Source) Close() error {
	s.cancel()
	return s.pr.Close()
}

type ctxSleeper struct {
	ctx context.Context
}

func (c ctxSleeper) Sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
	case <-t.C:
	}
}
