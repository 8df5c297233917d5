package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pasabayan/chatd/internal/gateway"
)

// PackageTools returns the catalog entries for package delivery requests.
func PackageTools() []Tool {
	return []Tool{
		{
			Name: "search_packages",
			Description: "Search for package delivery requests by route, urgency, weight, and status. " +
				"Use this to help carriers find packages to deliver or shippers to see available requests.",
			Schema: Schema{
				"pickup_city":   {Kind: KindString, Optional: true, Description: "Pickup city name"},
				"delivery_city": {Kind: KindString, Optional: true, Description: "Delivery city name"},
				"urgency": {Kind: KindEnum, Optional: true, Description: "Urgency level filter",
					Enum: []string{"flexible", "normal", "urgent", "express"}},
				"max_weight_kg": {Kind: KindNumber, Optional: true, Description: "Maximum package weight in kg"},
				"fragile":       {Kind: KindBool, Optional: true, Description: "Filter for fragile packages only"},
				"status": {Kind: KindEnum, Optional: true, Description: "Package request status",
					Enum: []string{"open", "matched", "delivered"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: searchPackages,
		},
		{
			Name: "get_package",
			Description: "Get detailed information about a specific package request by its ID. " +
				"Returns full package details including dimensions, value, and shipper info.",
			Schema: Schema{
				"package_id": {Kind: KindNumber, Description: "The package ID to look up"},
			},
			Handler: getPackage,
		},
		{
			Name: "get_my_packages",
			Description: "Get the authenticated user's package requests (for shippers). " +
				"Returns all packages created by the current user.",
			Schema: Schema{
				"status": {Kind: KindEnum, Optional: true, Description: "Filter by package status",
					Enum: []string{"open", "matched", "delivered"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: getMyPackages,
		},
		{
			Name: "get_package_compatible_trips",
			Description: "Find trips that are compatible with a specific package. " +
				"Useful for shippers looking for carriers to deliver their package.",
			Schema: Schema{
				"package_id": {Kind: KindNumber, Description: "The package ID to find compatible trips for"},
				"limit":      {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: getPackageCompatibleTrips,
		},
	}
}

func searchPackages(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"pickup_city":   p.String("pickup_city"),
		"delivery_city": p.String("delivery_city"),
		"urgency_level": p.String("urgency"),
		"status":        p.String("status"),
		"per_page":      strconv.Itoa(p.Int("limit")),
	}
	if p.Has("max_weight_kg") {
		query["max_weight_kg"] = num(p.Float("max_weight_kg"))
	}
	if p.Has("fragile") {
		query["fragile"] = strconv.FormatBool(p.Bool("fragile"))
	}

	var packages []Package
	if err := client.Get(ctx, "/api/packages/available", query, &packages); err != nil {
		return fmt.Sprintf("Error searching packages: %v", err), nil
	}

	if limit := p.Int("limit"); len(packages) > limit {
		packages = packages[:limit]
	}
	return formatPackages(packages), nil
}

func getPackage(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("package_id")

	var pkg Package
	if err := client.Get(ctx, fmt.Sprintf("/api/packages/%d", id), nil, &pkg); err != nil {
		return fmt.Sprintf("Error fetching package #%d: %v", id, err), nil
	}
	return formatPackage(pkg), nil
}

func getMyPackages(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"status":   p.String("status"),
		"per_page": strconv.Itoa(p.Int("limit")),
	}

	var packages []Package
	if err := client.Get(ctx, "/api/packages", query, &packages); err != nil {
		return fmt.Sprintf("Error fetching your packages: %v", err), nil
	}

	if len(packages) == 0 {
		return "You don't have any package requests yet. Create a package request to find a carrier!", nil
	}
	return formatPackages(packages), nil
}

func getPackageCompatibleTrips(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("package_id")
	query := map[string]string{"per_page": strconv.Itoa(p.Int("limit"))}

	var trips []json.RawMessage
	if err := client.Get(ctx, fmt.Sprintf("/api/packages/%d/compatible-trips", id), query, &trips); err != nil {
		return fmt.Sprintf("Error finding compatible trips: %v", err), nil
	}

	if len(trips) == 0 {
		return fmt.Sprintf("No compatible trips found for package #%d. "+
			"This could mean no carriers are traveling on this route soon.", id), nil
	}

	dump, err := json.MarshalIndent(trips, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode compatible trips: %w", err)
	}
	return fmt.Sprintf("Found %d compatible trip(s) for package #%d:\n\n%s", len(trips), id, dump), nil
}
