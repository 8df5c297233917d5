package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pasabayan/chatd/internal/gateway"
)

// MatchTools returns the catalog entries for delivery matches.
func MatchTools() []Tool {
	return []Tool{
		{
			Name: "list_matches",
			Description: "List delivery matches for the authenticated user. " +
				"Shows all active and past delivery matches where the user is either the carrier or shipper.",
			Schema: Schema{
				"status": {Kind: KindEnum, Optional: true, Description: "Filter by match status",
					Enum: []string{
						"carrier_requested", "shipper_requested", "shipper_accepted", "carrier_accepted",
						"confirmed", "picked_up", "in_transit", "delivered", "cancelled",
					}},
				"role": {Kind: KindEnum, Optional: true, Description: "Filter by user's role in the match",
					Enum: []string{"carrier", "shipper"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: listMatches,
		},
		{
			Name: "get_match",
			Description: "Get detailed information about a specific delivery match. " +
				"Returns full match details including carrier, shipper, trip, package, and status timeline.",
			Schema: Schema{
				"match_id": {Kind: KindNumber, Description: "The match ID to look up"},
			},
			Handler: getMatch,
		},
		{
			Name: "get_active_deliveries",
			Description: "Get all active deliveries (matches that are in progress). " +
				"This includes confirmed, picked up, and in-transit deliveries.",
			Schema: Schema{
				"limit": {Kind: KindNumber, Default: 20, Description: "Maximum number of results"},
			},
			Handler: getActiveDeliveries,
		},
		{
			Name: "get_carrier_location",
			Description: "Get the current location of a carrier for a specific match. " +
				"Only available for matches that are in progress (confirmed, picked_up, or in_transit).",
			Schema: Schema{
				"match_id": {Kind: KindNumber, Description: "The match ID to get carrier location for"},
			},
			Handler: getCarrierLocation,
		},
		{
			Name: "get_match_timeline",
			Description: "Get the status timeline/history for a delivery match. " +
				"Shows when each status change occurred.",
			Schema: Schema{
				"match_id": {Kind: KindNumber, Description: "The match ID to get timeline for"},
			},
			Handler: getMatchTimeline,
		},
	}
}

func listMatches(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"status":   p.String("status"),
		"role":     p.String("role"),
		"per_page": strconv.Itoa(p.Int("limit")),
	}

	var matches []Match
	if err := client.Get(ctx, "/api/matches", query, &matches); err != nil {
		return fmt.Sprintf("Error fetching matches: %v", err), nil
	}

	if len(matches) == 0 {
		return "No matches found. Matches are created when carriers and shippers agree to work together on a delivery.", nil
	}
	return formatMatches(matches), nil
}

func getMatch(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("match_id")

	var match Match
	if err := client.Get(ctx, fmt.Sprintf("/api/matches/%d", id), nil, &match); err != nil {
		return fmt.Sprintf("Error fetching match #%d: %v", id, err), nil
	}
	return formatMatch(match), nil
}

// activeMatchStatuses are the states in which a delivery is underway.
var activeMatchStatuses = []string{"confirmed", "picked_up", "in_transit"}

func getActiveDeliveries(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	limit := strconv.Itoa(p.Int("limit"))

	// One status may fail without sinking the whole report.
	var all []Match
	for _, status := range activeMatchStatuses {
		var matches []Match
		query := map[string]string{"status": status, "per_page": limit}
		if err := client.Get(ctx, "/api/matches", query, &matches); err != nil {
			continue
		}
		all = append(all, matches...)
	}

	if len(all) == 0 {
		return "No active deliveries found. Active deliveries are matches that have been confirmed and are in progress.", nil
	}
	return fmt.Sprintf("**Active Deliveries:**\n\n%s", formatMatches(all)), nil
}

type carrierLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	UpdatedAt   string  `json:"updated_at"`
	MatchStatus string  `json:"match_status"`
}

func getCarrierLocation(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("match_id")

	var loc carrierLocation
	if err := client.Get(ctx, fmt.Sprintf("/api/matches/%d/carrier-location", id), nil, &loc); err != nil {
		return fmt.Sprintf("Error fetching carrier location: %v", err), nil
	}

	if loc.Latitude == 0 || loc.Longitude == 0 {
		return fmt.Sprintf("No location data available for match #%d. "+
			"The carrier may not have shared their location yet.", id), nil
	}

	return fmt.Sprintf(`**Carrier Location for Match #%d:**
📍 Latitude: %s
📍 Longitude: %s
🕐 Last updated: %s
📦 Match status: %s

You can view this on a map at:
https://maps.google.com/?q=%s,%s`,
		id, num(loc.Latitude), num(loc.Longitude), loc.UpdatedAt, loc.MatchStatus,
		num(loc.Latitude), num(loc.Longitude)), nil
}

func getMatchTimeline(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("match_id")

	var match Match
	if err := client.Get(ctx, fmt.Sprintf("/api/matches/%d", id), nil, &match); err != nil {
		return fmt.Sprintf("Error fetching match timeline: %v", err), nil
	}

	timeline := []string{
		fmt.Sprintf("**Match #%d Timeline:**", match.ID),
		"",
		"📝 Created: Match initiated",
		fmt.Sprintf("   Status: %s", match.MatchStatus),
	}

	if match.ConfirmedAt != "" {
		timeline = append(timeline, fmt.Sprintf("✅ Confirmed: %s", formatDateTime(match.ConfirmedAt)))
	}
	if match.PickedUpAt != "" {
		timeline = append(timeline, fmt.Sprintf("📦 Picked up: %s", formatDateTime(match.PickedUpAt)))
	}
	if match.DeliveredAt != "" {
		timeline = append(timeline, fmt.Sprintf("🎉 Delivered: %s", formatDateTime(match.DeliveredAt)))
	}

	timeline = append(timeline, "", fmt.Sprintf("Current Status: %s", match.MatchStatus))

	return strings.Join(timeline, "\n"), nil
}
