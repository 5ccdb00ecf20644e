package uart

// Index returns the offset of the first occurrence of needle in haystack, or
// -1. An empty needle matches at 0. Knuth-Morris-Pratt, linear in
// len(haystack)+len(needle).
func Index(haystack, needle []byte) int {
	if len(needle) == 0 {
		return 0
	}
	m := NewMatcher(needle)
	for i, b := range haystack {
		if m.Feed(b) {
			return i - len(needle) + 1
		}
	}
	return -1
}

// Matcher finds a pattern in a byte stream fed one byte at a time.
type Matcher struct {
	pattern []byte
	fail    []int
	state   int
}

func NewMatcher(pattern []byte) *Matcher {
	p := append([]byte(nil), pattern...)
	fail := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = fail[k-1]
		}
		if p[i] == p[k] {
			k++
		}
		fail[i] = k
	}
	return &Matcher{pattern: p, fail: fail}
}

// Feed advances the matcher by one byte and reports whether the pattern
// ends at that byte. After a match the matcher keeps going, so overlapping
// occurrences are reported too.
func (m *Matcher) Feed(b byte) bool {
	if len(m.pattern) == 0 {
		return true
	}
	for m.state > 0 && b != m.pattern[m.state] {
		m.state = m.fail[m.state-1]
	}
	if b == m.pattern[m.state] {
		m.state++
	}
	if m.state == len(m.pattern) {
		m.state = m.fail[m.state-1]
		return true
	}
	return false
}

func (m *Matcher) Reset() { m.state = 0 }
