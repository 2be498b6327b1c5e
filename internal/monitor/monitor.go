// Package monitor runs the battle polling loop: each cycle pulls the open
// battle set from the feed, keeps only battles never seen before, enriches
// realm battles, resolves who cares and dispatches one notification per
// battle.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
	"github.com/whisper/battlewatch/internal/directory"
	"github.com/whisper/battlewatch/internal/dispatch"
	"github.com/whisper/battlewatch/internal/identity"
	"github.com/whisper/battlewatch/internal/seen"
)

const defaultInterval = 10 * time.Second

// Feed lists the currently open battles.
type Feed interface {
	Battles(ctx context.Context) ([]battle.Event, error)
}

// Enricher looks up realm context for a battle.
type Enricher interface {
	Enrich(ctx context.Context, e battle.Event) (battle.RealmInfo, bool)
}

// Resolver finds the subscribers interested in a defender or realm owner.
type Resolver interface {
	Resolve(ctx context.Context, defenderName, ownerName string) ([]directory.Subscriber, error)
}

// Dispatcher delivers a notification to its handles.
type Dispatcher interface {
	Dispatch(ctx context.Context, n battle.Notification) dispatch.Report
}

// BattlePublisher announces newly detected battles.
type BattlePublisher interface {
	PublishBattleStarted(details battle.Details) error
}

// Config holds scheduler settings. A cycle has no deadline of its own:
// every I/O call is bounded by its client (feed HTTP timeout, Bot API
// client timeout, directory query timeout).
type Config struct {
	Interval  time.Duration
	Location  *time.Location  // timestamp rendering; nil means time.Local
	Publisher BattlePublisher // optional
}

// DefaultConfig returns a 10s cadence.
func DefaultConfig() Config {
	return Config{Interval: defaultInterval}
}

// Monitor owns the poll loop and its collaborators.
type Monitor struct {
	feed       Feed
	seen       seen.Store
	enricher   Enricher
	resolver   Resolver
	dispatcher Dispatcher
	formatter  *battle.Formatter
	cfg        Config
	logger     *zap.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	status Status

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
}

// New creates a Monitor. Call Start to begin polling.
func New(feed Feed, store seen.Store, enricher Enricher, resolver Resolver, dispatcher Dispatcher, logger *zap.Logger, cfg Config) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		feed:       feed,
		seen:       store,
		enricher:   enricher,
		resolver:   resolver,
		dispatcher: dispatcher,
		formatter:  battle.NewFormatter(identity.NewDecoder(logger), cfg.Location),
		cfg:        cfg,
		logger:     logger.Named("poller"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start launches the poll loop. The first cycle runs immediately; each
// following cycle is scheduled Interval after the previous one finished.
// Calling Start more than once has no effect.
func (m *Monitor) Start() {
	m.start.Do(func() {
		go m.loop()
		m.logger.Info("monitor started",
			zap.Duration("interval", m.cfg.Interval),
			zap.String("timezone", m.cfg.Location.String()),
		)
	})
}

// Stop cancels the loop and waits for it to exit. A cycle already running
// is allowed to finish.
func (m *Monitor) Stop() {
	m.cancel()
	// Never started: nothing will close done.
	m.start.Do(func() { close(m.done) })
	<-m.done
	m.logger.Info("monitor stopped")
}

func (m *Monitor) loop() {
	defer close(m.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-timer.C:
		}

		// The cycle outlives cancellation so that a battle marked seen is
		// also dispatched.
		if _, err := m.RunCycle(context.WithoutCancel(m.ctx)); err != nil {
			m.logger.Warn("poll cycle failed", zap.Error(err))
		}
		timer.Reset(m.cfg.Interval)
	}
}
