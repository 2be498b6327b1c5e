// Package feed queries the game's Torii GraphQL endpoint for battle-start
// records and settled realms.
package feed

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
)

// Known Torii endpoints.
const (
	TestEndpoint = "https://api.cartridge.gg/x/sepolia-rc-16/torii/graphql"
	ProdEndpoint = "https://api.cartridge.gg/x/realms-world-5/torii/graphql"
)

// Config holds feed client settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// DefaultConfig returns settings pointing at the test world.
func DefaultConfig() Config {
	return Config{
		Endpoint: TestEndpoint,
		Timeout:  15 * time.Second,
	}
}

// Realm is a settled realm as stored in the feed. Names are packed.
type Realm struct {
	Name      string
	OwnerName string
}

// Client executes the battle and realm queries. It is safe for concurrent
// use.
type Client struct {
	gql    *graphql.Client
	logger *zap.Logger
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		gql:    graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(newHTTPClient(cfg.Timeout))),
		logger: logger.Named("feed"),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Battles returns every currently-open battle-start record in feed order.
// Records whose coordinates do not parse are kept with NoLocation set.
func (c *Client) Battles(ctx context.Context) ([]battle.Event, error) {
	var resp battleStartResponse
	if err := c.gql.Run(ctx, graphql.NewRequest(battleStartQuery), &resp); err != nil {
		return nil, fmt.Errorf("feed: battle starts: %w", err)
	}

	events := make([]battle.Event, 0, len(resp.Models.Edges))
	for _, edge := range resp.Models.Edges {
		n := edge.Node
		x, errX := n.X.Int()
		y, errY := n.Y.Int()
		noLocation := errX != nil || errY != nil
		if noLocation {
			// Still returned so it is deduplicated and notified once.
			x, y = 0, 0
			c.logger.Debug("battle has unparsable coordinates",
				zap.String("battle_id", string(n.BattleEntityID)),
				zap.String("x", string(n.X)),
				zap.String("y", string(n.Y)),
			)
		}
		events = append(events, battle.Event{
			EventID:        string(n.EventID),
			BattleID:       string(n.BattleEntityID),
			Attacker:       string(n.Attacker),
			AttackerName:   string(n.AttackerName),
			AttackerArmyID: string(n.AttackerArmyEntityID),
			Defender:       string(n.Defender),
			DefenderName:   string(n.DefenderName),
			DefenderArmyID: string(n.DefenderArmyEntityID),
			X:              x,
			Y:              y,
			NoLocation:     noLocation,
			StructureType:  string(n.StructureType),
			DurationLeft:   string(n.DurationLeft),
			Timestamp:      string(n.Timestamp),
		})
	}

	c.logger.Debug("fetched battle starts",
		zap.Int("count", len(events)),
		zap.Int("total_count", resp.Models.TotalCount),
	)
	return events, nil
}

// RealmAt returns the realm settled at (x, y). The bool is false when no
// realm is settled there.
func (c *Client) RealmAt(ctx context.Context, x, y int) (Realm, bool, error) {
	req := graphql.NewRequest(settleRealmQuery)
	req.Var("x", x)
	req.Var("y", y)

	var resp settleRealmResponse
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return Realm{}, false, fmt.Errorf("feed: settle realm (%d, %d): %w", x, y, err)
	}
	if len(resp.Models.Edges) == 0 {
		return Realm{}, false, nil
	}

	node := resp.Models.Edges[0].Node
	return Realm{Name: string(node.RealmName), OwnerName: string(node.OwnerName)}, true, nil
}
