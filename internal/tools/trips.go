package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pasabayan/chatd/internal/gateway"
)

// TripTools returns the catalog entries for carrier trips.
func TripTools() []Tool {
	return []Tool{
		{
			Name: "search_trips",
			Description: "Search for available carrier trips by route, date, capacity, and status. " +
				"Use this to help users find trips for their packages or to browse available delivery options.",
			Schema: Schema{
				"origin_city":      {Kind: KindString, Optional: true, Description: "Origin city name (e.g., 'Manila', 'Toronto')"},
				"destination_city": {Kind: KindString, Optional: true, Description: "Destination city name"},
				"date_from":        {Kind: KindString, Optional: true, Description: "Start date for departure (YYYY-MM-DD)"},
				"date_to":          {Kind: KindString, Optional: true, Description: "End date for departure (YYYY-MM-DD)"},
				"min_weight_kg":    {Kind: KindNumber, Optional: true, Description: "Minimum available weight capacity in kg"},
				"status": {Kind: KindEnum, Optional: true, Description: "Trip status filter",
					Enum: []string{"planning", "active", "in_transit", "completed"}},
				"transportation_method": {Kind: KindEnum, Optional: true, Description: "Type of transportation",
					Enum: []string{"car", "van", "bus", "truck", "train", "motorcycle", "flight", "other"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results to return"},
			},
			Handler: searchTrips,
		},
		{
			Name: "get_trip",
			Description: "Get detailed information about a specific trip by its ID. " +
				"Returns full trip details including carrier info, route, capacity, and pricing.",
			Schema: Schema{
				"trip_id": {Kind: KindNumber, Description: "The trip ID to look up"},
			},
			Handler: getTrip,
		},
		{
			Name: "get_my_trips",
			Description: "Get the authenticated user's trips (for carriers). " +
				"Returns all trips created by the current user.",
			Schema: Schema{
				"status": {Kind: KindEnum, Optional: true, Description: "Filter by trip status",
					Enum: []string{"planning", "active", "in_transit", "completed", "cancelled"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: getMyTrips,
		},
		{
			Name: "get_trip_compatible_packages",
			Description: "Find packages that are compatible with a specific trip. " +
				"Useful for carriers looking to fill their trip capacity.",
			Schema: Schema{
				"trip_id": {Kind: KindNumber, Description: "The trip ID to find compatible packages for"},
				"limit":   {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: getTripCompatiblePackages,
		},
	}
}

func searchTrips(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"origin_city":           p.String("origin_city"),
		"destination_city":      p.String("destination_city"),
		"departure_date_from":   p.String("date_from"),
		"departure_date_to":     p.String("date_to"),
		"status":                p.String("status"),
		"transportation_method": p.String("transportation_method"),
		"per_page":              strconv.Itoa(p.Int("limit")),
	}
	if p.Has("min_weight_kg") {
		query["min_weight_kg"] = num(p.Float("min_weight_kg"))
	}

	var trips []Trip
	if err := client.Get(ctx, "/api/trips/available", query, &trips); err != nil {
		return fmt.Sprintf("Error searching trips: %v", err), nil
	}

	if limit := p.Int("limit"); len(trips) > limit {
		trips = trips[:limit]
	}
	return formatTrips(trips), nil
}

func getTrip(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("trip_id")

	var trip Trip
	if err := client.Get(ctx, fmt.Sprintf("/api/trips/%d", id), nil, &trip); err != nil {
		return fmt.Sprintf("Error fetching trip #%d: %v", id, err), nil
	}
	return formatTrip(trip), nil
}

func getMyTrips(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"status":   p.String("status"),
		"per_page": strconv.Itoa(p.Int("limit")),
	}

	var trips []Trip
	if err := client.Get(ctx, "/api/trips", query, &trips); err != nil {
		return fmt.Sprintf("Error fetching your trips: %v", err), nil
	}

	if len(trips) == 0 {
		return "You don't have any trips yet. Create a trip to start carrying packages!", nil
	}
	return formatTrips(trips), nil
}

func getTripCompatiblePackages(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("trip_id")
	query := map[string]string{"per_page": strconv.Itoa(p.Int("limit"))}

	var packages []json.RawMessage
	if err := client.Get(ctx, fmt.Sprintf("/api/trips/%d/compatible-packages", id), query, &packages); err != nil {
		return fmt.Sprintf("Error finding compatible packages: %v", err), nil
	}

	if len(packages) == 0 {
		return fmt.Sprintf("No compatible packages found for trip #%d. "+
			"This could mean the route or timing doesn't match any current package requests.", id), nil
	}

	dump, err := json.MarshalIndent(packages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode compatible packages: %w", err)
	}
	return fmt.Sprintf("Found %d compatible package(s) for trip #%d:\n\n%s", len(packages), id, dump), nil
}
