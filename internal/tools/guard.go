package tools

import "sync"

// FailureGuard counts consecutive failed calls per tool for the lifetime of
// a session. Once a tool reaches the limit it is refused.
type FailureGuard struct {
	mu       sync.Mutex
	limit    int
	failures map[string]int
}

// NewFailureGuard returns a guard allowing limit consecutive failures per
// tool. A limit <= 0 disables the guard.
func NewFailureGuard(limit int) *FailureGuard {
	return &FailureGuard{limit: limit, failures: make(map[string]int)}
}

// Allow reports whether name may still be called.
func (g *FailureGuard) Allow(name string) bool {
	if g == nil || g.limit <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[name] < g.limit
}

// Record notes the outcome of a call. A success resets the count.
func (g *FailureGuard) Record(name string, failed bool) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if failed {
		g.failures[name]++
		return
	}
	delete(g.failures, name)
}

// Failures returns the current consecutive failure count for name.
func (g *FailureGuard) Failures(name string) int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[name]
}

func (g *FailureGuard) Limit() int {
	if g == nil {
		return 0
	}
	return g.limit
}
