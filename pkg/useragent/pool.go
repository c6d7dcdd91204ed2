package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// DefaultPool holds desktop browser User-Agents that search engines serve the
// full HTML results page to.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
}

// Source yields one User-Agent per call. Fetchers take a Source so tests can
// pin the header value.
type Source func() string

// Fixed returns a Source that always yields ua.
func Fixed(ua string) Source {
	return func() string { return ua }
}

// Pool is a fixed set of User-Agents handed out at random or round-robin.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a new User-Agent pool. An empty slice falls back to
// DefaultPool.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = DefaultPool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied}
}

// Sequential returns the next User-Agent in round-robin order.
func (p *Pool) Sequential() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a uniformly chosen User-Agent. It falls back to Sequential
// if crypto/rand fails.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Sequential()
	}
	return p.uas[n.Int64()]
}

// Source returns the pool's random picker as a Source.
func (p *Pool) Source() Source {
	return p.Random
}

// All returns a copy of the pool contents.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
