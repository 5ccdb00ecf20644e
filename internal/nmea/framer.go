package nmea

// MaxSentence is the NMEA 0183 limit of 82 characters including "$" and
// CR LF.
const MaxSentence = 82

// Framer assembles a byte stream into sentences. A sentence starts at '$'
// and ends at CR or LF; bytes outside a sentence are ignored. A sentence
// longer than the limit is discarded.
type Framer struct {
	buf     []byte
	max     int
	inside  bool
	Dropped uint64
}

func NewFramer(max int) *Framer {
	if max <= 0 {
		max = MaxSentence
	}
	return &Framer{buf: make([]byte, 0, max), max: max}
}

// Push feeds one byte and returns a complete sentence (without the line
// terminator) when b ends one.
func (f *Framer) Push(b byte) (string, bool) {
	switch b {
	case '$':
		if f.inside && len(f.buf) > 1 {
			f.Dropped++
		}
		f.buf = append(f.buf[:0], b)
		f.inside = true
	case '\r', '\n':
		if !f.inside {
			return "", false
		}
		f.inside = false
		if len(f.buf) < 2 {
			return "", false
		}
		return string(f.buf), true
	default:
		if !f.inside {
			return "", false
		}
		if len(f.buf) >= f.max {
			f.inside = false
			f.Dropped++
			return "", false
		}
		f.buf = append(f.buf, b)
	}
	return "", false
}

// Max is the sentence length limit in effect.
func (f *Framer) Max() int { return f.max }

// Reset drops a partially assembled sentence, so bytes from before a
// break in the stream are never joined to bytes after it.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.inside = false
}
