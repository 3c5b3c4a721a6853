package dictionary

import "sync"

// Progress is the shared saved/total counter for one import. Every shard
// task reports its committed batches through Add; all mutation is serialized
// by the mutex so concurrent increments are never lost.
type Progress struct {
	mu       sync.Mutex
	saved    int
	total    int
	lastPct  float64
	emitted  bool
	onChange func(pct float64)
}

// NewProgress creates a counter with a fixed total. onChange, if non-nil, is
// invoked under the counter's lock after each increment, but only when the
// percentage differs from the last delivered value — the delivered sequence
// is therefore non-decreasing with no consecutive duplicates. The callback
// must not call back into the Progress.
func NewProgress(total int, onChange func(pct float64)) *Progress {
	return &Progress{total: total, onChange: onChange}
}

// Add records n more saved words and returns the running total.
func (p *Progress) Add(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved += n
	pct := p.percentageLocked()
	if p.onChange != nil && (!p.emitted || pct != p.lastPct) {
		p.emitted = true
		p.lastPct = pct
		p.onChange(pct)
	}
	return p.saved
}

// Saved returns the number of words committed so far.
func (p *Progress) Saved() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved
}

// Percentage returns saved/total clamped to [0,1]. A zero total reports 1.0:
// there is nothing left to do.
func (p *Progress) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentageLocked()
}

func (p *Progress) percentageLocked() float64 {
	if p.total <= 0 {
		return 1.0
	}
	pct := float64(p.saved) / float64(p.total)
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}
