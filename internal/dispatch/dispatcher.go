// Package dispatch delivers rendered battle notifications to their
// recipients. Every recipient is attempted independently; a permanent
// failure removes the recipient's registration, a transient one is logged
// and left for the next battle.
package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
	"github.com/whisper/battlewatch/internal/metrics"
)

// SendOptions controls how a channel renders a message.
type SendOptions struct {
	RichFormatting      bool
	SuppressLinkPreview bool
}

// Channel delivers text to a recipient handle.
type Channel interface {
	Send(ctx context.Context, handle, text string, opts SendOptions) error
}

// Unsubscriber removes a recipient's registration.
type Unsubscriber interface {
	Delete(ctx context.Context, handle string) error
}

// RemovalPublisher announces automatic unsubscriptions to other services.
type RemovalPublisher interface {
	PublishSubscriberRemoved(handle, reason string) error
}

// Options configures a Dispatcher.
type Options struct {
	Send      SendOptions
	Publisher RemovalPublisher // optional
}

// DefaultOptions returns rich formatting with link previews suppressed.
func DefaultOptions() Options {
	return Options{
		Send: SendOptions{RichFormatting: true, SuppressLinkPreview: true},
	}
}

// Report summarises one Dispatch call by handle.
type Report struct {
	Sent         []string
	Transient    []string
	Permanent    []string
	Unsubscribed []string
}

// Dispatcher fans a notification out over a Channel.
type Dispatcher struct {
	channel   Channel
	directory Unsubscriber
	opts      Options
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(channel Channel, directory Unsubscriber, logger *zap.Logger, opts Options) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channel:   channel,
		directory: directory,
		opts:      opts,
		logger:    logger.Named("dispatcher"),
	}
}

// Dispatch sends n to each of its handles in order. It never stops early:
// every handle gets exactly one attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, n battle.Notification) Report {
	var report Report
	if len(n.Handles) == 0 {
		d.logger.Info("no recipients for battle", zap.String("battle_id", n.BattleID))
		return report
	}

	ctx, span := otel.Tracer("battlewatch/dispatch").Start(ctx, "dispatch.notification")
	defer span.End()
	span.SetAttributes(
		attribute.String("battle.id", n.BattleID),
		attribute.Int("recipients", len(n.Handles)),
	)

	for _, handle := range n.Handles {
		err := d.channel.Send(ctx, handle, n.Text, d.opts.Send)
		if err == nil {
			metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
			report.Sent = append(report.Sent, handle)
			d.logger.Info("notification sent",
				zap.String("battle_id", n.BattleID),
				zap.String("handle", handle),
			)
			continue
		}

		failure := Classify(err)
		metrics.DeliveriesTotal.WithLabelValues(failure.String()).Inc()

		if failure == FailureTransient {
			report.Transient = append(report.Transient, handle)
			d.logger.Warn("notification failed, will not retry this cycle",
				zap.String("battle_id", n.BattleID),
				zap.String("handle", handle),
				zap.Error(err),
			)
			continue
		}

		report.Permanent = append(report.Permanent, handle)
		d.logger.Warn("recipient unreachable, unsubscribing",
			zap.String("battle_id", n.BattleID),
			zap.String("handle", handle),
			zap.Error(err),
		)
		if d.unsubscribe(ctx, handle, err) {
			report.Unsubscribed = append(report.Unsubscribed, handle)
		}
	}

	span.SetAttributes(
		attribute.Int("sent", len(report.Sent)),
		attribute.Int("failed", len(report.Transient)+len(report.Permanent)),
	)
	return report
}

// unsubscribe deletes handle from the directory and announces it. It
// reports whether the deletion succeeded.
func (d *Dispatcher) unsubscribe(ctx context.Context, handle string, cause error) bool {
	if err := d.directory.Delete(ctx, handle); err != nil {
		metrics.UnsubscribesTotal.WithLabelValues("error").Inc()
		d.logger.Error("failed to unsubscribe unreachable recipient",
			zap.String("handle", handle),
			zap.Error(err),
		)
		return false
	}
	metrics.UnsubscribesTotal.WithLabelValues("ok").Inc()

	if d.opts.Publisher != nil {
		if err := d.opts.Publisher.PublishSubscriberRemoved(handle, cause.Error()); err != nil {
			d.logger.Warn("failed to publish subscriber removal",
				zap.String("handle", handle),
				zap.Error(err),
			)
		}
	}
	return true
}
