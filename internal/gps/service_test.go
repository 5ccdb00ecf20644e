package gps

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"math"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"gnss-ingest/internal/uart"
)

const (
	testGGA = "$GPGGA,123456.00,3749.1234,N,12225.5678,W,1,08,1.0,15.6,M,,,*47"
	testRMC = "$GPRMC,123456.00,A,3749.1234,N,12225.5678,W,0.5,90.0,101221,,,A*68"
)

func newTestService(t *testing.T, cfg Config) (*Service, *uart.Driver, chan Snapshot) {
	t.Helper()
	drv, err := uart.NewDriver(1024, 16)
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}
	fixes := make(chan Snapshot, 8)
	cfg.OnFix = func(s Snapshot) { fixes <- s }
	svc := New(cfg, drv)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, drv, fixes
}

func pushString(d *uart.Driver, s string) {
	for i := 0; i < len(s); i++ {
		d.Push(s[i])
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// recordingPort never delivers input and keeps everything written to it.
type recordingPort struct {
	mu     sync.Mutex
	out    bytes.Buffer
	closed chan struct{}
}

func newRecordingPort() *recordingPort {
	return &recordingPort{closed: make(chan struct{})}
}

func (p *recordingPort) Read([]byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *recordingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *recordingPort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFix(t *testing.T, ch chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fix")
	}
	return Snapshot{}
}

func TestService_PublishesAfterGGAAndRMC(t *testing.T) {
	svc, drv, fixes := newTestService(t, Config{})

	pushString(drv, testGGA+"\r\n$GPGSV,3,1,11*74\r\n")
	select {
	case s := <-fixes:
		t.Fatalf("published with only GGA: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}

	pushString(drv, testRMC+"\r\n")
	snap := waitFix(t, fixes)
	if !snap.Valid {
		t.Fatalf("expected valid fix")
	}
	if math.Abs(snap.Fix.GGA.Position.Longitude-(-122.42613)) > 1e-6 {
		t.Fatalf("lon=%f", snap.Fix.GGA.Position.Longitude)
	}
	if snap.Fix.RMC.Date.Year != 2021 || snap.Fix.GGA.Satellites != 8 {
		t.Fatalf("fix=%+v", snap.Fix)
	}
	if snap.Fixes != 1 || snap.Sentences != 3 || snap.Unsupported != 1 {
		t.Fatalf("counters sentences=%d fixes=%d unsupported=%d", snap.Sentences, snap.Fixes, snap.Unsupported)
	}
	if snap.LastFixUTC == "" {
		t.Fatalf("expected last_fix_utc")
	}

	got := svc.Snapshot()
	if got.Fix != snap.Fix {
		t.Fatalf("Snapshot().Fix=%+v want %+v", got.Fix, snap.Fix)
	}
}

func TestService_NeedsBothHalvesAgain(t *testing.T) {
	_, drv, fixes := newTestService(t, Config{})

	pushString(drv, testGGA+"\r\n"+testRMC+"\r\n")
	waitFix(t, fixes)

	pushString(drv, testRMC+"\r\n"+testRMC+"\r\n")
	select {
	case s := <-fixes:
		t.Fatalf("published without a new GGA: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}

	pushString(drv, testGGA+"\r\n")
	if snap := waitFix(t, fixes); snap.Fixes != 2 {
		t.Fatalf("fixes=%d want 2", snap.Fixes)
	}
}

func TestService_SyncSkipsPartialSentence(t *testing.T) {
	var lines []string
	done := make(chan struct{})
	cfg := Config{
		SyncPattern: "\n",
		OnSentence: func(line string) {
			lines = append(lines, line)
			if len(lines) == 2 {
				close(done)
			}
		},
	}
	_, drv, _ := newTestService(t, cfg)

	// "$GPRMC" before the first newline would otherwise frame as a sentence.
	pushString(drv, "$GPRMC,1\r\n"+testGGA+"\r\n"+testRMC+"\r\n")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lines=%q", lines)
	}
	if lines[0] != testGGA || lines[1] != testRMC {
		t.Fatalf("lines=%q", lines)
	}
}

func TestService_InvalidFix(t *testing.T) {
	_, drv, fixes := newTestService(t, Config{})
	pushString(drv, "$GPGGA,000000,,,,,0,00,,,M,,,*66\r\n$GPRMC,000000,V,,,,,,,010125,,,N*00\r\n")
	snap := waitFix(t, fixes)
	if snap.Valid {
		t.Fatalf("expected invalid fix")
	}
}

func TestService_StartValidates(t *testing.T) {
	var nilSvc *Service
	if err := nilSvc.Start(context.Background()); err == nil {
		t.Fatalf("expected error for nil service")
	}
	if err := New(Config{}, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected error for missing driver")
	}
}

func TestService_RxResetDropsPartialSentence(t *testing.T) {
	lines := make(chan string, 4)
	_, drv, _ := newTestService(t, Config{OnSentence: func(line string) { lines <- line }})

	pushString(drv, "$GPGGA,123456.00,3749.1234,N")
	waitUntil(t, "rx drained", func() bool { return drv.Stats().RxAvailable == 0 })

	drv.HandleRxError(&uart.LineError{Kind: "disconnect"})
	waitUntil(t, "rx reset", func() bool { return drv.RxResets() == 1 })

	pushString(drv, ",90.0,101221,,,A*68\r\n"+testRMC+"\r\n")
	select {
	case line := <-lines:
		if line != testRMC {
			t.Fatalf("line=%q want %q", line, testRMC)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for sentence")
	}
}

func TestService_InitCommandReachesPort(t *testing.T) {
	const cmd = "$PMTK220,1000*1F\r\n"
	_, drv, _ := newTestService(t, Config{InitCommand: cmd})

	port := newRecordingPort()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uart.NewLink(port, drv).Run(ctx) }()
	defer func() {
		cancel()
		close(port.closed)
		<-done
	}()

	// The command is longer than the outbound ring, so it only arrives
	// whole if the link keeps draining while the service writes.
	waitUntil(t, "init command", func() bool { return port.written() == cmd })
}

func TestService_GPSDWatchSentOnEveryConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	watches := make(chan string, 2)
	release := make(chan struct{})
	defer close(release)
	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			line, _ := bufio.NewReader(conn).ReadString('\n')
			watches <- line
			if i == 0 {
				_, _ = conn.Write([]byte(testGGA + "\r\n" + testRMC + "\r\n"))
				_ = conn.Close()
				continue
			}
			<-release
			_ = conn.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := NewNetClient(ctx, NetClientConfig{
		Name:           "gpsd",
		Addr:           ln.Addr().String(),
		GPSD:           true,
		ReconnectDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewNetClient() error: %v", err)
	}
	defer c.Close()

	_, drv, fixes := newTestService(t, Config{InitCommand: GPSDWatch, Reconnected: c.Connected()})
	go func() { _ = uart.NewLink(c, drv).Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case w := <-watches:
			if w != GPSDWatch {
				t.Fatalf("watch %d=%q want %q", i, w, GPSDWatch)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for watch %d", i)
		}
		if i == 0 {
			if snap := waitFix(t, fixes); snap.Fix.GGA.Satellites != 8 {
				t.Fatalf("fix=%+v", snap.Fix)
			}
		}
	}
	waitUntil(t, "rx reset after the first stream dropped", func() bool { return drv.RxResets() > 0 })
}

func TestService_LogsEffectiveSentenceLimit(t *testing.T) {
	var buf syncBuffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	newTestService(t, Config{})
	waitUntil(t, "start log", func() bool {
		return strings.Contains(buf.String(), "gps acquisition started max_sentence=82")
	})
}
