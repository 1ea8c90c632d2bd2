package warmup

import "sync"

// Target is one upstream health URL to keep warm.
type Target struct {
	Name string
	URL  string

	mu      sync.RWMutex
	known   bool
	healthy bool
}

func NewTarget(name, url string) *Target {
	return &Target{Name: name, URL: url}
}

// IsHealthy reports the result of the last probe. It is false before the
// first probe.
func (t *Target) IsHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.healthy
}

// SetHealthy records a probe result. It reports a change on the first
// call and whenever the result flips.
func (t *Target) SetHealthy(healthy bool) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.known && t.healthy == healthy {
		return false
	}

	t.known = true
	t.healthy = healthy
	return true
}
