package upstream

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed helpers for the catalogued endpoints. Each returns the raw upstream
// payload; schema parsing belongs to the caller.

// FixturesByDate returns the fixtures feed for date (YYYY-MM-DD) in tz.
// Fixtures are core: they are fetched live even when the circuit is open.
func (c *Client) FixturesByDate(ctx context.Context, date, tz string, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointFixtures, map[string]any{"date": date, "timezone": tz}, opts...)
}

// FixtureByID returns a single fixture. Core, like the feed it belongs to.
func (c *Client) FixtureByID(ctx context.Context, fixtureID int, tz string, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointFixtures, map[string]any{"id": fixtureID, "timezone": tz}, opts...)
}

// Standings returns the league table for a season.
func (c *Client) Standings(ctx context.Context, leagueID, season int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointStandings, map[string]any{"league": leagueID, "season": season}, opts...)
}

// TeamStats returns season statistics for one team in a league.
func (c *Client) TeamStats(ctx context.Context, leagueID, season, teamID int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointTeamStats, map[string]any{
		"league": leagueID,
		"season": season,
		"team":   teamID,
	}, opts...)
}

// HeadToHead returns the last n meetings between two teams.
func (c *Client) HeadToHead(ctx context.Context, homeID, awayID, last int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointHeadToHead, map[string]any{
		"h2h":  fmt.Sprintf("%d-%d", homeID, awayID),
		"last": last,
	}, opts...)
}

// Injuries returns the injury list for one team in a league season.
func (c *Client) Injuries(ctx context.Context, leagueID, season, teamID int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointInjuries, map[string]any{
		"league": leagueID,
		"season": season,
		"team":   teamID,
	}, opts...)
}

// FixtureStats returns in-match statistics for a fixture.
func (c *Client) FixtureStats(ctx context.Context, fixtureID int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointFixtureStats, map[string]any{"fixture": fixtureID}, opts...)
}

// Predictions returns the upstream's model predictions for a fixture.
func (c *Client) Predictions(ctx context.Context, fixtureID int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointPredictions, map[string]any{"fixture": fixtureID}, opts...)
}

// Odds returns one page of the betting-market snapshot for a fixture.
func (c *Client) Odds(ctx context.Context, fixtureID, page int, opts ...CallOption) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointOdds, map[string]any{"fixture": fixtureID, "page": page}, opts...)
}

// DefaultMaxOddsPages bounds AllOdds when the caller passes maxPages ≤ 0.
const DefaultMaxOddsPages = 3

// AllOdds returns the concatenated rows of a fixture's odds pages, fetching
// page 1 upward and stopping at the first empty page or after maxPages.
// Each page is cached individually, so repeated aggregation inside the odds
// TTL costs no upstream calls.
func (c *Client) AllOdds(ctx context.Context, fixtureID, maxPages int, opts ...CallOption) ([]json.RawMessage, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxOddsPages
	}
	var rows []json.RawMessage
	for page := 1; page <= maxPages; page++ {
		raw, err := c.Odds(ctx, fixtureID, page, opts...)
		if err != nil {
			return nil, err
		}
		var envelope struct {
			Response []json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("upstream: decoding odds page %d: %w", page, err)
		}
		if len(envelope.Response) == 0 {
			break
		}
		rows = append(rows, envelope.Response...)
	}
	return rows, nil
}
