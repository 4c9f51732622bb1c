package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	feedFailureLimit  = 10
	feedFailureWindow = 15 * time.Minute
)

// feedGuard counts rejected calendar feed tokens per client within a
// sliding window.
type feedGuard struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	failures map[string][]time.Time
}

func newFeedGuard(limit int, window time.Duration) *feedGuard {
	return &feedGuard{
		limit:    limit,
		window:   window,
		failures: make(map[string][]time.Time),
	}
}

func (guard *feedGuard) blocked(client string, now time.Time) bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	return len(guard.recentLocked(client, now)) >= guard.limit
}

func (guard *feedGuard) fail(client string, now time.Time) {
	guard.mu.Lock()
	defer guard.mu.Unlock()

	guard.sweepLocked(now)
	guard.failures[client] = append(guard.recentLocked(client, now), now)
}

func (guard *feedGuard) forget(client string) {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	delete(guard.failures, client)
}

func (guard *feedGuard) recentLocked(client string, now time.Time) []time.Time {
	stamps := guard.failures[client]
	if len(stamps) == 0 {
		return nil
	}

	cutoff := now.Add(-guard.window)
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	if len(kept) == 0 {
		delete(guard.failures, client)
		return nil
	}
	guard.failures[client] = kept
	return kept
}

// sweepLocked drops clients whose newest failure has left the window.
func (guard *feedGuard) sweepLocked(now time.Time) {
	cutoff := now.Add(-guard.window)
	for client, stamps := range guard.failures {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(guard.failures, client)
		}
	}
}

func feedClientKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.IP())
	if key == "" {
		return "unknown"
	}
	return key
}
