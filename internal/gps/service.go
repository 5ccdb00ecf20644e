package gps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gnss-ingest/internal/nmea"
	"gnss-ingest/internal/uart"
)

// Config controls the acquisition loop.
//
// SyncPattern, when set, is consumed from the input before framing starts so
// the first (usually partial) sentence is skipped.
//
// InitCommand is queued on the driver's outbound ring once the service
// starts, or on every signal from Reconnected when that is set (a network
// source that needs a request per connection). The service goroutine is
// the only writer of outbound bytes.
//
// OnSentence and OnFix run on the service goroutine; they should not block.
type Config struct {
	SyncPattern string
	MaxSentence int

	InitCommand string
	Reconnected <-chan struct{}

	OnSentence func(line string)
	OnFix      func(Snapshot)
}

type Snapshot struct {
	Valid bool             `json:"valid"`
	Fix   nmea.CombinedFix `json:"fix"`

	Sentences     uint64 `json:"sentences"`
	Fixes         uint64 `json:"fixes"`
	Unsupported   uint64 `json:"unsupported"`
	FramerDropped uint64 `json:"framer_dropped"`

	Transport uart.Stats `json:"transport"`

	LastFixUTC string `json:"last_fix_utc,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config
	drv *uart.Driver

	framer  *nmea.Framer
	resets  uint64 // driver rx resets already applied to the framer
	acc     nmea.CombinedFix
	haveGGA bool
	haveRMC bool

	sentences     atomic.Uint64
	fixes         atomic.Uint64
	unsupported   atomic.Uint64
	framerDropped atomic.Uint64

	last    atomic.Value // Snapshot, fix fields only
	lastErr atomic.Value // string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, drv *uart.Driver) *Service {
	s := &Service{cfg: cfg, drv: drv, framer: nmea.NewFramer(cfg.MaxSentence)}
	s.last.Store(Snapshot{})
	s.lastErr.Store("")
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.drv == nil {
		return fmt.Errorf("gps service has no driver")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.cfg.Reconnected == nil {
			s.sendInit(childCtx)
		} else {
			select {
			case <-childCtx.Done():
				return
			case <-s.cfg.Reconnected:
				s.sendInit(childCtx)
			}
		}

		if s.cfg.SyncPattern != "" {
			if err := s.drv.WaitFor(childCtx, s.cfg.SyncPattern); err != nil {
				return
			}
		}
		log.Printf("gps acquisition started max_sentence=%d", s.framer.Max())
		s.run(childCtx)
	}()
	return nil
}

func (s *Service) run(ctx context.Context) {
	for {
		for {
			b, ok := s.drv.Read()
			if n := s.drv.RxResets(); n != s.resets {
				s.resets = n
				s.framer.Reset()
			}
			if !ok {
				break
			}
			if line, ok := s.framer.Push(b); ok {
				s.handleLine(line)
			}
		}
		s.framerDropped.Store(s.framer.Dropped)

		select {
		case <-ctx.Done():
			return
		case <-s.drv.RxReady():
		case <-s.cfg.Reconnected:
			s.sendInit(ctx)
		}
	}
}

func (s *Service) sendInit(ctx context.Context) {
	if s.cfg.InitCommand == "" {
		return
	}
	if err := s.drv.SendStringContext(ctx, s.cfg.InitCommand); err != nil {
		if ctx.Err() == nil {
			log.Printf("gps init send failed: %v", err)
		}
		return
	}
	log.Printf("gps init queued bytes=%d", len(s.cfg.InitCommand))
}

func (s *Service) handleLine(line string) {
	s.sentences.Add(1)
	if s.cfg.OnSentence != nil {
		s.cfg.OnSentence(line)
	}

	kind, err := nmea.Decode(line, &s.acc)
	if errors.Is(err, nmea.ErrUnsupported) {
		s.unsupported.Add(1)
		return
	}
	if err != nil {
		s.setError(fmt.Sprintf("decode %q: %v", line, err))
		return
	}

	switch kind {
	case nmea.KindGGA:
		s.haveGGA = true
	case nmea.KindRMC:
		s.haveRMC = true
	}
	if !s.haveGGA || !s.haveRMC {
		return
	}
	s.haveGGA, s.haveRMC = false, false
	s.fixes.Add(1)

	snap := Snapshot{
		Valid:      s.acc.GGA.FixQuality > 0 && s.acc.RMC.Valid,
		Fix:        s.acc,
		LastFixUTC: time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.last.Store(snap)
	if s.cfg.OnFix != nil {
		s.cfg.OnFix(s.fill(snap))
	}
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Snapshot returns the last complete fix together with live counters.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	snap, _ := s.last.Load().(Snapshot)
	return s.fill(snap)
}

func (s *Service) fill(snap Snapshot) Snapshot {
	snap.Sentences = s.sentences.Load()
	snap.Fixes = s.fixes.Load()
	snap.Unsupported = s.unsupported.Load()
	snap.FramerDropped = s.framerDropped.Load()
	snap.Transport = s.drv.Stats()
	snap.LastError, _ = s.lastErr.Load().(string)
	return snap
}

func (s *Service) setError(msg string) {
	s.lastErr.Store(msg)
}

// AutoDetectDevice returns the first USB serial device present, or "".
func AutoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
