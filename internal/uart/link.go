package uart

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
)

// Link moves bytes between a port and a Driver, standing in for the
// receive and transmit-complete interrupts of a hardware UART.
type Link struct {
	port io.ReadWriter
	drv  *Driver

	// ReadChunk bounds a single port read. Bytes are still handed to the
	// driver one at a time.
	ReadChunk int
}

func NewLink(port io.ReadWriter, drv *Driver) *Link {
	return &Link{port: port, drv: drv, ReadChunk: 64}
}

// Run pumps both directions until ctx is done or the port reaches EOF.
// Closing the port is the caller's job; it is the way to unblock a read
// that ignores ctx.
func (l *Link) Run(ctx context.Context) error {
	if l == nil || l.port == nil || l.drv == nil {
		return errors.New("link is not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.txLoop(runCtx)
	}()

	err := l.rxLoop(runCtx)
	cancel()
	wg.Wait()
	return err
}

func (l *Link) rxLoop(ctx context.Context) error {
	chunk := l.ReadChunk
	if chunk <= 0 {
		chunk = 64
	}
	buf := make([]byte, chunk)
	for {
		n, err := l.port.Read(buf)
		for i := 0; i < n; i++ {
			l.drv.Push(buf[i])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		var le *LineError
		if errors.As(err, &le) {
			log.Printf("uart line error: %v", err)
			l.drv.HandleRxError(err)
			continue
		}
		l.drv.HandleRxError(err)
		return err
	}
}

func (l *Link) txLoop(ctx context.Context) {
	out := make([]byte, 0, 64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.drv.TxReady():
		}
		for {
			out = out[:0]
			for len(out) < cap(out) {
				b, ok := l.drv.NextTx()
				if !ok {
					break
				}
				out = append(out, b)
			}
			if len(out) == 0 {
				break
			}
			if _, err := l.port.Write(out); err != nil {
				log.Printf("uart tx failed: %v", err)
				break
			}
		}
	}
}

// LineError reports a recoverable receive fault (framing, noise, overrun).
// Ports return it from Read; the link discards buffered input and keeps
// reading.
type LineError struct {
	Kind string
}

func (e *LineError) Error() string { return "uart " + e.Kind + " error" }
