// Package enrich looks up contextual data for battles that need it. Only
// battles at a Realm are enriched: the settlement at the battle's
// coordinate supplies the realm name and its owner.
package enrich

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
	"github.com/whisper/battlewatch/internal/feed"
	"github.com/whisper/battlewatch/internal/identity"
	"github.com/whisper/battlewatch/internal/metrics"
)

// RealmLookup finds the realm settled at a coordinate.
type RealmLookup interface {
	RealmAt(ctx context.Context, x, y int) (feed.Realm, bool, error)
}

// Enricher resolves RealmInfo for realm battles.
type Enricher struct {
	lookup  RealmLookup
	decoder *identity.Decoder
	logger  *zap.Logger
}

// NewEnricher creates an Enricher backed by lookup.
func NewEnricher(lookup RealmLookup, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		lookup:  lookup,
		decoder: identity.NewDecoder(logger),
		logger:  logger.Named("enricher"),
	}
}

// Enrich returns the realm at e's location. The bool is false when e is not
// a realm battle, when nothing is settled there, or when the lookup fails;
// failures are logged and never returned.
func (en *Enricher) Enrich(ctx context.Context, e battle.Event) (battle.RealmInfo, bool) {
	if !e.IsRealm() {
		return battle.RealmInfo{}, false
	}
	if e.NoLocation {
		metrics.EnrichmentsTotal.WithLabelValues("absent").Inc()
		en.logger.Warn("realm battle has no usable location",
			zap.String("battle_id", e.BattleID),
		)
		return battle.RealmInfo{}, false
	}

	ctx, span := otel.Tracer("battlewatch/enrich").Start(ctx, "enrich.realm")
	defer span.End()
	span.SetAttributes(
		attribute.String("battle.id", e.BattleID),
		attribute.Int("battle.x", e.X),
		attribute.Int("battle.y", e.Y),
	)

	realm, ok, err := en.lookup.RealmAt(ctx, e.X, e.Y)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "realm lookup failed")
		metrics.EnrichmentsTotal.WithLabelValues("error").Inc()
		en.logger.Warn("realm lookup failed",
			zap.String("battle_id", e.BattleID),
			zap.Int("x", e.X),
			zap.Int("y", e.Y),
			zap.Error(err),
		)
		return battle.RealmInfo{}, false
	}
	if !ok {
		metrics.EnrichmentsTotal.WithLabelValues("absent").Inc()
		en.logger.Debug("no realm settled at battle location",
			zap.String("battle_id", e.BattleID),
			zap.Int("x", e.X),
			zap.Int("y", e.Y),
		)
		return battle.RealmInfo{}, false
	}

	metrics.EnrichmentsTotal.WithLabelValues("found").Inc()
	return battle.RealmInfo{
		Name:      en.decoder.Decode(realm.Name),
		OwnerName: en.decoder.Decode(realm.OwnerName),
	}, true
}
