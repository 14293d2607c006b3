package upstream

import "time"

// Class groups endpoints by data volatility. The TTL policy and the
// rate-limit circuit both operate per class.
type Class string

const (
	// ClassLive covers the live fixtures feed. Volatile, short TTL.
	ClassLive Class = "live"

	// ClassEvent covers per-event pages: lineups, injuries, predictions,
	// head-to-head, fixture statistics.
	ClassEvent Class = "event"

	// ClassSeason covers slow-moving season aggregates: standings, team
	// statistics.
	ClassSeason Class = "season"

	// ClassOdds covers betting-market snapshots.
	ClassOdds Class = "odds"
)

// Endpoint describes one upstream API operation.
type Endpoint struct {
	// Name is the stable identifier used in cache keys.
	Name string

	// Path is the URL path appended to the client's base URL.
	Path string

	// Class selects the TTL and circuit bucket.
	Class Class

	// Core endpoints are never circuit-gated: they always attempt the
	// live call, because staleness on the primary feed is unacceptable.
	// Cache fallback is still preferred over failing.
	Core bool
}

// The upstream API surface. Fixtures are the backbone feed and therefore
// core; everything else degrades to cache or empty results under throttling.
var (
	EndpointFixtures     = Endpoint{Name: "fixtures", Path: "/fixtures", Class: ClassLive, Core: true}
	EndpointStandings    = Endpoint{Name: "standings", Path: "/standings", Class: ClassSeason}
	EndpointTeamStats    = Endpoint{Name: "teams_statistics", Path: "/teams/statistics", Class: ClassSeason}
	EndpointHeadToHead   = Endpoint{Name: "h2h", Path: "/fixtures/headtohead", Class: ClassEvent}
	EndpointInjuries     = Endpoint{Name: "injuries", Path: "/injuries", Class: ClassEvent}
	EndpointFixtureStats = Endpoint{Name: "fixtures_statistics", Path: "/fixtures/statistics", Class: ClassEvent}
	EndpointPredictions  = Endpoint{Name: "predictions", Path: "/predictions", Class: ClassEvent}
	EndpointOdds         = Endpoint{Name: "odds", Path: "/odds", Class: ClassOdds}
)

// TTLPolicy maps endpoint classes to cache lifetimes.
type TTLPolicy map[Class]time.Duration

// DefaultTTLPolicy returns the production TTL table: seconds for the live
// feed, minutes for per-event pages and odds, hours for season aggregates.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		ClassLive:   45 * time.Second,
		ClassEvent:  10 * time.Minute,
		ClassSeason: 6 * time.Hour,
		ClassOdds:   2 * time.Minute,
	}
}

// TTL returns the lifetime for class, or zero when the class is unknown
// (which disables caching for it).
func (p TTLPolicy) TTL(class Class) time.Duration {
	return p[class]
}
