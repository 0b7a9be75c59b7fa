// Package random draws uniformly distributed indexes from a
// cryptographically secure byte source.
package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
)

// ErrEmptyAlphabet is returned when asked to pick from nothing
var ErrEmptyAlphabet = errors.New("random: empty alphabet")

// Source turns a byte stream into unbiased choices. The zero value is not
// usable; build one with New or Default.
type Source struct {
	reader io.Reader
}

// Default returns a Source backed by crypto/rand
func Default() *Source {
	return &Source{reader: rand.Reader}
}

// New wraps reader. A nil reader means crypto/rand. Any other reader is
// serialised behind a mutex so the Source can be shared across goroutines.
func New(reader io.Reader) *Source {
	if reader == nil || reader == rand.Reader {
		return Default()
	}
	return &Source{reader: &lockedReader{r: reader}}
}

// Intn returns a uniform integer in [0, n)
func (s *Source) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random: invalid bound %d", n)
	}
	if n == 1 {
		return 0, nil
	}

	v, err := rand.Int(s.reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random: read failed: %w", err)
	}
	return int(v.Int64()), nil
}

// IntRange returns a uniform integer in [lo, hi]
func (s *Source) IntRange(lo, hi int) (int, error) {
	if hi < lo {
		hi = lo
	}
	n, err := s.Intn(hi - lo + 1)
	if err != nil {
		return 0, err
	}
	return lo + n, nil
}

// Pick returns one character of alphabet chosen uniformly
func (s *Source) Pick(alphabet []rune) (rune, error) {
	if len(alphabet) == 0 {
		return 0, ErrEmptyAlphabet
	}
	i, err := s.Intn(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// Shuffle permutes runes in place with Fisher-Yates
func (s *Source) Shuffle(runes []rune) error {
	for i := len(runes) - 1; i > 0; i-- {
		j, err := s.Intn(i + 1)
		if err != nil {
			return err
		}
		runes[i], runes[j] = runes[j], runes[i]
	}
	return nil
}

type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}
