// Package uart is the byte transport between a serial link and foreground
// code. A Driver owns an inbound and an outbound ring. The link side plays
// the role of the receive/transmit interrupt: it pushes received bytes and
// drains queued output. Foreground code reads and writes through the other
// half of the API. Each ring has exactly one producer and one consumer.
package uart

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"

	"gnss-ingest/internal/ringbuf"
)

type Driver struct {
	rx *ringbuf.Ring
	tx *ringbuf.Ring

	rxReady chan struct{}
	txReady chan struct{}

	// Set by the link side on a line error. While set the link side drops
	// incoming bytes; the foreground side resets rx and clears it.
	rxResetReq atomic.Bool
	rxResets   atomic.Uint64
	rxErrDrops atomic.Uint64
	lastRxErr  atomic.Value // string
}

type Stats struct {
	RxAvailable int    `json:"rx_available"`
	RxDropped   uint64 `json:"rx_dropped"`
	RxResets    uint64 `json:"rx_resets"`
	TxPending   int    `json:"tx_pending"`
	LastRxError string `json:"last_rx_error,omitempty"`
}

func NewDriver(rxSize, txSize int) (*Driver, error) {
	rx, err := ringbuf.New(rxSize)
	if err != nil {
		return nil, fmt.Errorf("rx ring: %w", err)
	}
	tx, err := ringbuf.New(txSize)
	if err != nil {
		return nil, fmt.Errorf("tx ring: %w", err)
	}
	return &Driver{
		rx:      rx,
		tx:      tx,
		rxReady: make(chan struct{}, 1),
		txReady: make(chan struct{}, 1),
	}, nil
}

// Link side.

// Push stores one received byte. A full ring drops the byte silently.
func (d *Driver) Push(b byte) {
	if d.rxResetReq.Load() {
		d.rxErrDrops.Add(1)
		return
	}
	d.rx.Push(b)
	signal(d.rxReady)
}

// HandleRxError records a framing, noise or overrun condition on the line.
// Buffered input is discarded by the foreground side on its next access.
func (d *Driver) HandleRxError(err error) {
	if err != nil {
		d.lastRxErr.Store(err.Error())
	}
	if d.rxResetReq.Swap(true) {
		return
	}
	signal(d.rxReady)
}

// NextTx removes the next byte queued for transmission.
func (d *Driver) NextTx() (byte, bool) {
	return d.tx.Pull()
}

// TxReady fires after foreground code queues output.
func (d *Driver) TxReady() <-chan struct{} { return d.txReady }

// Foreground side.

// RxReady fires after the link side stores input or reports a line error.
func (d *Driver) RxReady() <-chan struct{} { return d.rxReady }

func (d *Driver) Read() (byte, bool) {
	d.serviceReset()
	return d.rx.Pull()
}

func (d *Driver) Peek() (byte, bool) {
	d.serviceReset()
	return d.rx.Peek()
}

// IsDataAvailable reports the number of unread input bytes.
func (d *Driver) IsDataAvailable() int {
	d.serviceReset()
	return d.rx.Available()
}

// Write queues b for transmission. It spins while the outbound ring is full
// and stalls the caller indefinitely if the link never drains. Use
// WriteContext when the wait must be bounded.
func (d *Driver) Write(b byte) {
	for d.tx.Full() {
		signal(d.txReady)
		runtime.Gosched()
	}
	d.tx.Push(b)
	signal(d.txReady)
}

// WriteContext is Write with cancellation.
func (d *Driver) WriteContext(ctx context.Context, b byte) error {
	for d.tx.Full() {
		if err := ctx.Err(); err != nil {
			return err
		}
		signal(d.txReady)
		runtime.Gosched()
	}
	d.tx.Push(b)
	signal(d.txReady)
	return nil
}

// SendStringContext queues s with WriteContext, stopping at the first
// cancellation.
func (d *Driver) SendStringContext(ctx context.Context, s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.WriteContext(ctx, s[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) SendString(s string) {
	for i := 0; i < len(s); i++ {
		d.Write(s[i])
	}
}

// PrintBase writes n formatted in the given base (2..36).
func (d *Driver) PrintBase(n int64, base int) error {
	if base < 2 || base > 36 {
		return fmt.Errorf("unsupported base %d", base)
	}
	d.SendString(strconv.FormatInt(n, base))
	return nil
}

// WaitFor consumes input until pattern has been received. Bytes up to and
// including the match are discarded.
func (d *Driver) WaitFor(ctx context.Context, pattern string) error {
	if pattern == "" {
		return nil
	}
	m := NewMatcher([]byte(pattern))
	for {
		for {
			b, ok := d.Read()
			if !ok {
				break
			}
			if m.Feed(b) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.rxReady:
		}
	}
}

// RxResets counts the input resets the foreground side has carried out.
// A consumer that keeps partial input outside the ring compares it between
// reads to learn that the stream was broken.
func (d *Driver) RxResets() uint64 { return d.rxResets.Load() }

func (d *Driver) Stats() Stats {
	st := Stats{
		RxAvailable: d.rx.Available(),
		RxDropped:   d.rx.Dropped() + d.rxErrDrops.Load(),
		RxResets:    d.rxResets.Load(),
		TxPending:   d.tx.Available(),
	}
	if v, ok := d.lastRxErr.Load().(string); ok {
		st.LastRxError = v
	}
	return st
}

func (d *Driver) serviceReset() {
	if !d.rxResetReq.Load() {
		return
	}
	d.rx.Reset()
	d.rxResetReq.Store(false)
	d.rxResets.Add(1)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
