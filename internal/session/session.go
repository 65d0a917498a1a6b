// Package session holds the valuation state for one shopper. Submissions may
// finish out of order; the stored outcome always belongs to the newest input.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/josz5930/CDC-Value-For-You/internal/profile"
	"github.com/josz5930/CDC-Value-For-You/pkg/denomination"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
	"go.uber.org/zap"
)

// Snapshot is the form input as it stood at a moment in time.
type Snapshot struct {
	Input profile.Input `json:"input"`
	At    time.Time     `json:"at"`
}

// Outcome is what a snapshot evaluated to. Exactly one of Result or Err is
// meaningful.
type Outcome struct {
	Snapshot Snapshot                `json:"snapshot"`
	Profile  valuation.UsageProfile  `json:"profile"`
	Result   valuation.Result        `json:"result"`
	Wallets  *valuation.WalletReport `json:"wallets,omitempty"`
	Err      error                   `json:"-"`
}

// Wallets are the voucher stacks each category draws from when simulating.
type Wallets struct {
	Regular     []denomination.Unit
	Supermarket []denomination.Unit
}

// Session stores the latest outcome for a stream of snapshots.
type Session struct {
	mu       sync.RWMutex
	latest   Outcome
	has      bool
	defaults profile.Input
	wallets  *Wallets
	logger   *zap.Logger
}

// New returns an empty session. Blank fields in submitted input are filled
// from defaults; wallets may be nil to skip the simulation.
func New(defaults profile.Input, wallets *Wallets, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		defaults: defaults,
		wallets:  wallets,
		logger:   logger,
	}
}

// Evaluate computes the outcome for snap without touching session state.
func (s *Session) Evaluate(snap Snapshot) Outcome {
	out := Outcome{Snapshot: snap}

	p, err := profile.Parse(snap.Input.Merge(s.defaults))
	if err != nil {
		out.Err = err
		return out
	}
	out.Profile = p

	result, err := valuation.Valuate(p)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = result

	if s.wallets != nil {
		report := valuation.SimulateWallets(p, s.wallets.Supermarket, s.wallets.Regular)
		out.Wallets = &report
	}
	return out
}

// Submit evaluates snap and stores the outcome unless a newer snapshot has
// already been stored. It reports whether the outcome was stored. A cancelled
// context skips the evaluation.
func (s *Session) Submit(ctx context.Context, snap Snapshot) (Outcome, bool) {
	if err := ctx.Err(); err != nil {
		return Outcome{Snapshot: snap, Err: err}, false
	}

	out := s.Evaluate(snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.has && snap.At.Before(s.latest.Snapshot.At) {
		s.logger.Debug("discarding stale snapshot",
			zap.String("op", "session.Submit"),
			zap.Time("snapshotAt", snap.At),
			zap.Time("latestAt", s.latest.Snapshot.At),
		)
		return out, false
	}

	s.latest = out
	s.has = true
	return out, true
}

// Latest returns the stored outcome, if any.
func (s *Session) Latest() (Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}
