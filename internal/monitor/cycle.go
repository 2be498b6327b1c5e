package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
	"github.com/whisper/battlewatch/internal/dispatch"
	"github.com/whisper/battlewatch/internal/metrics"
)

// ErrCycleInFlight is returned by RunCycle when another cycle has not
// finished yet.
var ErrCycleInFlight = errors.New("monitor: poll cycle already in flight")

// Classified is a polled battle together with its dedup verdict.
type Classified struct {
	Event battle.Event
	New   bool
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	ID        string
	Polled    int
	New       int
	Skipped   int // seen-store errors; retried next cycle
	Sent      int
	Failed    int
	Unsubbed  int
	StartedAt time.Time
	Duration  time.Duration
}

// RunCycle polls the feed once and notifies subscribers of every new
// battle. Only one cycle runs at a time.
func (m *Monitor) RunCycle(ctx context.Context) (CycleResult, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return CycleResult{}, ErrCycleInFlight
	}
	defer m.inFlight.Store(false)

	result := CycleResult{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := m.logger.With(zap.String("cycle_id", result.ID))

	ctx, span := otel.Tracer("battlewatch/monitor").Start(ctx, "monitor.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("cycle.id", result.ID))

	classified, skipped, err := m.poll(ctx)
	result.Duration = time.Since(result.StartedAt)
	metrics.PollDuration.Observe(result.Duration.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
		metrics.PollsTotal.WithLabelValues("error").Inc()
		m.recordFailure(result.StartedAt, err)
		return result, err
	}
	metrics.PollsTotal.WithLabelValues("ok").Inc()
	metrics.LastPollSuccess.SetToCurrentTime()

	result.Polled = len(classified) + skipped
	result.Skipped = skipped
	for _, c := range classified {
		if !c.New {
			continue
		}
		result.New++
		report := m.handle(ctx, c.Event)
		result.Sent += len(report.Sent)
		result.Failed += len(report.Transient) + len(report.Permanent)
		result.Unsubbed += len(report.Unsubscribed)
	}
	result.Duration = time.Since(result.StartedAt)
	m.recordSuccess(result)

	span.SetAttributes(
		attribute.Int("battles.polled", result.Polled),
		attribute.Int("battles.new", result.New),
	)
	logger.Debug("poll cycle complete",
		zap.Int("polled", result.Polled),
		zap.Int("new", result.New),
		zap.Int("skipped", result.Skipped),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Poll fetches the open battles and classifies each as new or already
// seen, marking new ones seen. A feed error marks nothing. A battle whose
// seen-store call fails is left out and retried on the next poll.
func (m *Monitor) Poll(ctx context.Context) ([]Classified, error) {
	classified, _, err := m.poll(ctx)
	return classified, err
}

func (m *Monitor) poll(ctx context.Context) ([]Classified, int, error) {
	events, err := m.feed.Battles(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("monitor: poll feed: %w", err)
	}

	skipped := 0
	out := make([]Classified, 0, len(events))
	for _, e := range events {
		isNew, err := m.seen.MarkSeen(ctx, e.BattleID)
		if err != nil {
			skipped++
			metrics.BattlesTotal.WithLabelValues("error").Inc()
			m.logger.Warn("seen store failed, battle deferred",
				zap.String("battle_id", e.BattleID),
				zap.Error(err),
			)
			continue
		}
		if isNew {
			metrics.BattlesTotal.WithLabelValues("new").Inc()
		} else {
			metrics.BattlesTotal.WithLabelValues("seen").Inc()
		}
		out = append(out, Classified{Event: e, New: isNew})
	}
	return out, skipped, nil
}

// handle runs the enrich, format, resolve and dispatch steps for one new
// battle.
func (m *Monitor) handle(ctx context.Context, e battle.Event) dispatch.Report {
	var realm *battle.RealmInfo
	if info, ok := m.enricher.Enrich(ctx, e); ok {
		realm = &info
	}

	details := m.formatter.Describe(e, realm)
	text := battle.Text(details)
	m.logBattle(details)

	if m.cfg.Publisher != nil {
		if err := m.cfg.Publisher.PublishBattleStarted(details); err != nil {
			m.logger.Warn("failed to publish battle",
				zap.String("battle_id", e.BattleID),
				zap.Error(err),
			)
		}
	}

	owner := ""
	if realm != nil {
		owner = realm.OwnerName
	}
	subs, err := m.resolver.Resolve(ctx, details.Defender.Name, owner)
	if err != nil {
		m.logger.Warn("recipient lookup incomplete",
			zap.String("battle_id", e.BattleID),
			zap.Error(err),
		)
	}

	handles := make([]string, 0, len(subs))
	for _, s := range subs {
		handles = append(handles, s.Handle)
	}
	return m.dispatcher.Dispatch(ctx, battle.NewNotification(e.BattleID, text, handles))
}

func (m *Monitor) logBattle(d battle.Details) {
	fields := []zap.Field{
		zap.String("battle_id", d.BattleID),
		zap.String("event_id", d.EventID),
		zap.String("attacker", d.Attacker.Name),
		zap.String("attacker_address", d.Attacker.Address),
		zap.String("attacker_army_id", d.Attacker.ArmyID),
		zap.String("defender", d.Defender.Name),
		zap.String("defender_address", d.Defender.Address),
		zap.String("defender_army_id", d.Defender.ArmyID),
		zap.String("structure_type", d.StructureType),
		zap.String("duration_left", d.DurationLeft),
		zap.String("started_at", d.StartedAt),
	}
	if d.Location != nil {
		fields = append(fields, zap.Int("x", d.Location.X), zap.Int("y", d.Location.Y))
	}
	if d.Realm != nil {
		fields = append(fields,
			zap.String("realm", d.Realm.Name),
			zap.String("realm_owner", d.Realm.OwnerName),
		)
	}
	m.logger.Info("battle details", fields...)
}
