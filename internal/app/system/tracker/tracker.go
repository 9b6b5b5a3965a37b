// Package tracker correlates CONNECT tunnel openings with later OAuth
// callback observations to infer completed logins, without ever looking
// inside the encrypted tunnel.
//
// The session map is private to this package. Observations for the same
// session key are serialized by a sharded mutex map; different keys proceed
// concurrently.
package tracker

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/dalemusser/stratawatch/internal/app/system/metrics"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"go.uber.org/zap"
)

const (
	// DefaultWindow is the maximum elapsed time between a CONNECT and a
	// matching callback for them to count as one authentication attempt.
	DefaultWindow = 60 * time.Second

	// DefaultDedupeWindow collapses redirect storms: once a login is
	// recorded for a key, further matches within this window are skipped.
	// This is an accommodation for multi-redirect auth flows, not a
	// business rule about one login per user per day.
	DefaultDedupeWindow = 1 * time.Second

	shardCount = 16
)

// Sink receives confirmed login detections.
type Sink interface {
	LoginDetected(occurredAt time.Time, method models.DetectionMethod)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(occurredAt time.Time, method models.DetectionMethod)

// LoginDetected calls f.
func (f SinkFunc) LoginDetected(occurredAt time.Time, method models.DetectionMethod) {
	f(occurredAt, method)
}

type session struct {
	openedAt time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]session   // key -> open session
	recorded map[string]time.Time // key -> last recorded login (dedupe)
}

// Tracker correlates per-key observations within the configured window.
type Tracker struct {
	window time.Duration
	dedupe time.Duration
	sink   Sink
	logger *zap.Logger
	shards [shardCount]*shard
}

// New creates a Tracker. Zero durations fall back to the defaults.
func New(window, dedupe time.Duration, sink Sink, logger *zap.Logger) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if dedupe <= 0 {
		dedupe = DefaultDedupeWindow
	}
	t := &Tracker{
		window: window,
		dedupe: dedupe,
		sink:   sink,
		logger: logger,
	}
	for i := range t.shards {
		t.shards[i] = &shard{
			sessions: make(map[string]session),
			recorded: make(map[string]time.Time),
		}
	}
	return t
}

func (t *Tracker) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return t.shards[h.Sum32()%shardCount]
}

// ConnectObserved records that a CONNECT tunnel to the identity provider was
// opened for sessionKey at the given instant. A repeat CONNECT for a key
// with an open session replaces it (the window resets) rather than stacking:
// a single client may re-negotiate the tunnel during one auth attempt.
//
// The caller is responsible for host filtering; only identity-provider
// tunnels should reach the tracker.
func (t *Tracker) ConnectObserved(sessionKey, host string, at time.Time) {
	t.sweep(at)

	s := t.shardFor(sessionKey)
	s.mu.Lock()
	_, replacing := s.sessions[sessionKey]
	s.sessions[sessionKey] = session{openedAt: at}
	s.mu.Unlock()

	if !replacing {
		metrics.SessionsOpen.Inc()
	}
	t.logger.Debug("tracked login CONNECT",
		zap.String("session_key", sessionKey),
		zap.String("host", host),
		zap.Bool("replaced_open_session", replacing),
	)
}

// CallbackObserved reports an observed OAuth callback for sessionKey. If an
// open session exists and the callback falls inside the correlation window,
// the session is consumed and the sink is notified; otherwise the callback
// is ignored. Late and orphan callbacks are a deliberate false-negative
// policy, never an error.
//
// Returns true when a login was emitted.
func (t *Tracker) CallbackObserved(sessionKey string, method models.DetectionMethod, at time.Time) bool {
	t.sweep(at)

	s := t.shardFor(sessionKey)
	s.mu.Lock()

	sess, ok := s.sessions[sessionKey]
	if !ok || at.Sub(sess.openedAt) > t.window {
		s.mu.Unlock()
		t.logger.Debug("callback without open session, ignoring",
			zap.String("session_key", sessionKey),
			zap.String("method", string(method)),
		)
		return false
	}

	// Consume the session before deciding on dedupe so a redirect storm
	// cannot re-match against a stale entry.
	delete(s.sessions, sessionKey)
	metrics.SessionsOpen.Dec()

	if last, seen := s.recorded[sessionKey]; seen && at.Sub(last) < t.dedupe {
		s.mu.Unlock()
		t.logger.Debug("duplicate login within dedupe window, skipping",
			zap.String("session_key", sessionKey),
		)
		return false
	}
	s.recorded[sessionKey] = at
	s.mu.Unlock()

	t.logger.Info("login detected",
		zap.String("session_key", sessionKey),
		zap.String("method", string(method)),
	)
	t.sink.LoginDetected(at, method)
	return true
}

// OpenCount returns the number of open (unexpired relative to now) sessions.
func (t *Tracker) OpenCount(now time.Time) int {
	t.sweep(now)

	var n int
	for _, s := range t.shards {
		s.mu.Lock()
		n += len(s.sessions)
		s.mu.Unlock()
	}
	return n
}

// sweep removes expired sessions and stale dedupe entries. It runs
// opportunistically on every observation rather than on a timer, which
// bounds staleness to the gap until the next observation; cost is
// O(open sessions), which stays small at this detection cadence.
func (t *Tracker) sweep(now time.Time) {
	for _, s := range t.shards {
		s.mu.Lock()
		for key, sess := range s.sessions {
			if now.Sub(sess.openedAt) > t.window {
				delete(s.sessions, key)
				metrics.SessionsOpen.Dec()
				metrics.SessionsExpired.Inc()
			}
		}
		for key, last := range s.recorded {
			if now.Sub(last) > t.dedupe {
				delete(s.recorded, key)
			}
		}
		s.mu.Unlock()
	}
}
