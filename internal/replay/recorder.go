package replay

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// Recorder appends received sentences to a capture file per day, named
// nmea.YYYY-MM-DD.log in local time. A cron job rolls the file over at
// midnight. Restarting during the day appends to the existing file.
type Recorder struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	w       *Writer
	day     string
	lastErr error

	cron *cron.Cron
}

func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	r := &Recorder{dir: dir, now: time.Now}
	if err := r.Rotate(); err != nil {
		return nil, err
	}

	r.cron = cron.New()
	if err := r.cron.AddFunc("@midnight", func() {
		if err := r.Rotate(); err != nil {
			log.Printf("capture rotate failed: %v", err)
		}
	}); err != nil {
		_ = r.Close()
		return nil, err
	}
	r.cron.Start()
	return r, nil
}

// FileName returns the capture file name for t.
func FileName(t time.Time) string {
	return "nmea." + t.Format("2006-01-02") + ".log"
}

// Rotate switches to the file for the current day. It is a no-op when that
// file is already open.
func (r *Recorder) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.now().Format("2006-01-02")
	if r.w != nil && r.day == day {
		return nil
	}
	path := filepath.Join(r.dir, FileName(r.now()))
	w, err := AppendWriter(path)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", path, err)
	}
	if r.w != nil {
		if err := r.w.Close(); err != nil {
			log.Printf("capture close failed day=%s: %v", r.day, err)
		}
	}
	r.w = w
	r.day = day
	return nil
}

// Record writes one sentence. Write failures are logged once until the
// next successful write.
func (r *Recorder) Record(sentence string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return
	}
	err := r.w.WriteSentence(r.now(), sentence)
	if err == nil {
		err = r.w.Flush()
	}
	if err != nil {
		if r.lastErr == nil {
			log.Printf("capture write failed: %v", err)
		}
		r.lastErr = err
		return
	}
	r.lastErr = nil
}

func (r *Recorder) Close() error {
	if r.cron != nil {
		r.cron.Stop()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	err := r.w.Close()
	r.w = nil
	return err
}
