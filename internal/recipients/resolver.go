// Package recipients resolves which subscribers care about a battle. A
// subscriber is interested when their registered display name equals the
// defender's decoded name or the owner of the realm under attack.
package recipients

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/directory"
	"github.com/whisper/battlewatch/internal/identity"
)

// Finder looks up subscribers by registered display name.
type Finder interface {
	FindByDisplayName(ctx context.Context, name string) ([]directory.Subscriber, error)
}

// Resolver maps battle identities to subscribers.
type Resolver struct {
	finder Finder
	logger *zap.Logger
}

// NewResolver creates a Resolver backed by finder.
func NewResolver(finder Finder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{finder: finder, logger: logger.Named("resolver")}
}

// Resolve returns the subscribers registered under defenderName or, when
// given, ownerName. Each handle appears once, in first-seen order. Empty
// names and the Unknown sentinel are never looked up. If one lookup fails
// the subscribers found by the other are still returned alongside the
// error.
func (r *Resolver) Resolve(ctx context.Context, defenderName, ownerName string) ([]directory.Subscriber, error) {
	var (
		result []directory.Subscriber
		seen   = make(map[string]bool)
		errs   []error
	)

	for _, name := range lookupNames(defenderName, ownerName) {
		subs, err := r.finder.FindByDisplayName(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("recipients: resolve %q: %w", name, err))
			continue
		}
		for _, sub := range subs {
			if seen[sub.Handle] {
				continue
			}
			seen[sub.Handle] = true
			result = append(result, sub)
		}
	}

	r.logger.Debug("resolved recipients",
		zap.String("defender", defenderName),
		zap.String("owner", ownerName),
		zap.Int("count", len(result)),
	)
	return result, errors.Join(errs...)
}

// lookupNames returns the distinct names worth querying.
func lookupNames(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || n == identity.Unknown {
			continue
		}
		dup := false
		for _, o := range out {
			if o == n {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}
