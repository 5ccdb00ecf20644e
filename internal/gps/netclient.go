package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gnss-ingest/internal/uart"
)

type NetClientConfig struct {
	Name string
	Addr string

	// GPSD defaults Addr to the local gpsd port. The WATCH request itself
	// goes out through the driver; see GPSDWatch and Connected.
	GPSD bool

	ReconnectDelay time.Duration
	DialTimeout    time.Duration
}

// NetClient reads an NMEA byte stream from a TCP endpoint (gpsd, or a
// receiver that serves raw NMEA) and reconnects when the stream drops. It is
// an io.ReadWriteCloser so a uart.Link can pump it like a serial port.
//
// A drop is reported from Read as a *uart.LineError so the partial sentence
// in the receive ring is discarded. Each new connection is announced on
// Connected.
type NetClient struct {
	cfg    NetClientConfig
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	dials  uint64 // Read goroutine only
	up     chan struct{}

	connMu sync.Mutex
	conn   net.Conn

	mu       sync.RWMutex
	state    string
	lastErr  string
	lastSeen time.Time
	bytes    uint64
	connects uint64
}

type NetSnapshot struct {
	Name        string `json:"name"`
	Addr        string `json:"addr"`
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastSeenUTC string `json:"last_seen_utc,omitempty"`
	Bytes       uint64 `json:"bytes"`
	Connects    uint64 `json:"connects"`
}

var errNotConnected = errors.New("not connected")

func NewNetClient(ctx context.Context, cfg NetClientConfig) (*NetClient, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx is nil")
	}
	if cfg.Name == "" {
		cfg.Name = "tcp"
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		if !cfg.GPSD {
			return nil, fmt.Errorf("net client addr is required")
		}
		cfg.Addr = gpsdDefaultAddr
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}

	runCtx, cancel := context.WithCancel(ctx)
	return &NetClient{
		cfg:    cfg,
		ctx:    runCtx,
		cancel: cancel,
		up:     make(chan struct{}, 1),
		state:  "stopped",
	}, nil
}

// Connected fires once a connection is up and writable. Signals coalesce;
// a reader that falls behind sees one pending signal for the latest
// connection.
func (c *NetClient) Connected() <-chan struct{} { return c.up }

func (c *NetClient) Read(p []byte) (int, error) {
	conn, err := c.connected()
	if err != nil {
		return 0, err
	}
	n, err := conn.Read(p)
	if n > 0 {
		c.mu.Lock()
		c.lastSeen = time.Now().UTC()
		c.bytes += uint64(n)
		c.mu.Unlock()
	}
	if err == nil {
		return n, nil
	}

	c.dropConn(conn)
	if c.ctx.Err() != nil {
		return n, io.EOF
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		c.setState("disconnected", "")
	} else {
		c.setState("disconnected", err.Error())
	}
	log.Printf("%s stream dropped addr=%s: %v", c.cfg.Name, c.cfg.Addr, err)
	return n, &uart.LineError{Kind: "disconnect"}
}

// connected returns the current connection, dialing (with the reconnect
// delay between attempts) until one is up or the client is closed.
func (c *NetClient) connected() (net.Conn, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn != nil {
		return conn, nil
	}

	for {
		if c.dials > 0 && !sleepCtx(c.ctx, c.cfg.ReconnectDelay) {
			c.setState("stopped", "")
			return nil, io.EOF
		}
		if c.ctx.Err() != nil {
			c.setState("stopped", "")
			return nil, io.EOF
		}
		c.dials++

		c.setState("connecting", "")
		conn, err := c.dial()
		if err != nil {
			c.setState("error", err.Error())
			continue
		}

		c.connMu.Lock()
		if c.closed.Load() {
			c.connMu.Unlock()
			_ = conn.Close()
			return nil, io.EOF
		}
		c.conn = conn
		c.connMu.Unlock()

		c.mu.Lock()
		c.connects++
		c.mu.Unlock()
		c.setState("connected", "")
		log.Printf("%s connected addr=%s", c.cfg.Name, c.cfg.Addr)
		select {
		case c.up <- struct{}{}:
		default:
		}
		return conn, nil
	}
}

func (c *NetClient) dial() (net.Conn, error) {
	d := &net.Dialer{Timeout: c.cfg.DialTimeout}
	return d.DialContext(c.ctx, "tcp", c.cfg.Addr)
}

func (c *NetClient) dropConn(conn net.Conn) {
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
	_ = conn.Close()
}

// Write sends to the current connection; bytes written while disconnected
// are rejected.
func (c *NetClient) Write(p []byte) (int, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return 0, errNotConnected
	}
	return conn.Write(p)
}

func (c *NetClient) Close() error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *NetClient) Snapshot() NetSnapshot {
	if c == nil {
		return NetSnapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := NetSnapshot{
		Name:      c.cfg.Name,
		Addr:      c.cfg.Addr,
		State:     c.state,
		LastError: c.lastErr,
		Bytes:     c.bytes,
		Connects:  c.connects,
	}
	if !c.lastSeen.IsZero() {
		out.LastSeenUTC = c.lastSeen.Format(time.RFC3339Nano)
	}
	return out
}

func (c *NetClient) setState(state string, lastErr string) {
	c.mu.Lock()
	c.state = state
	// A retry keeps the previous failure visible until a dial succeeds.
	if lastErr != "" {
		c.lastErr = lastErr
	} else if state == "connected" || state == "stopped" {
		c.lastErr = ""
	}
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
