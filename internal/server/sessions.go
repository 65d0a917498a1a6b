package server

import (
	"context"
	"time"

	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"go.uber.org/zap"
)

type liveSession struct {
	session   *session.Session
	debouncer *session.Debouncer
	lastSeen  time.Time
}

// liveSession returns the session for id, creating it if needed. Creating a
// session first evicts idle ones and, at capacity, the least recently used.
func (h *handler) liveSession(id string) *liveSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if live, ok := h.sessions[id]; ok {
		live.lastSeen = now
		return live
	}

	h.evictSessionsLocked(now)

	s := session.New(h.defaults, h.wallets, h.logger.With(zap.String("session", id)))
	live := &liveSession{session: s, lastSeen: now}
	live.debouncer = session.NewDebouncer(h.debounce, func(snap session.Snapshot) {
		start := time.Now()
		out, _ := s.Submit(context.Background(), snap)
		h.metrics.ObserveValuation(time.Since(start), out.Err)
	})
	h.sessions[id] = live
	return live
}

func (h *handler) lookupSession(id string) (*liveSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.sessions[id]
	if ok {
		live.lastSeen = h.now()
	}
	return live, ok
}

func (h *handler) evictSessionsLocked(now time.Time) {
	var (
		oldestID string
		oldest   *liveSession
	)
	for id, live := range h.sessions {
		if now.Sub(live.lastSeen) > h.sessionTTL {
			h.dropSessionLocked(id, live, "idle")
			continue
		}
		if oldest == nil || live.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, live
		}
	}

	if len(h.sessions) >= h.maxSessions && oldest != nil {
		h.dropSessionLocked(oldestID, oldest, "capacity")
	}
}

func (h *handler) dropSessionLocked(id string, live *liveSession, reason string) {
	live.debouncer.Stop()
	delete(h.sessions, id)
	h.logger.Debug("session evicted",
		zap.String("op", "server.evictSessions"),
		zap.String("session", id),
		zap.String("reason", reason),
	)
}
