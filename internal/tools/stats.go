package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pasabayan/chatd/internal/gateway"
)

// StatsTools returns the catalog entries for statistics and analytics.
func StatsTools() []Tool {
	return []Tool{
		{
			Name: "get_carrier_stats",
			Description: "Get carrier performance statistics including trips, earnings, and ratings. " +
				"For regular users, returns their own stats. Admins can look up any carrier.",
			Schema: Schema{
				"user_id": {Kind: KindNumber, Optional: true,
					Description: "User ID to get stats for (admin only, omit for own stats)"},
			},
			Handler: getCarrierStats,
		},
		{
			Name: "get_shipper_stats",
			Description: "Get shipper performance statistics including packages, spending, and ratings. " +
				"For regular users, returns their own stats. Admins can look up any shipper.",
			Schema: Schema{
				"user_id": {Kind: KindNumber, Optional: true,
					Description: "User ID to get stats for (admin only, omit for own stats)"},
			},
			Handler: getShipperStats,
		},
		{
			Name: "get_my_stats",
			Description: "Get combined statistics for users who are both carriers and shippers. " +
				"Returns both carrier and shipper stats in one response.",
			Schema:  Schema{},
			Handler: getMyStats,
		},
		{
			Name: "get_platform_stats",
			Description: "Get platform-wide statistics including total users, trips, deliveries, " +
				"and revenue. Admin only.",
			Schema: Schema{
				"period": {Kind: KindEnum, Default: "today", Description: "Time period for statistics",
					Enum: []string{"today", "week", "month", "year", "all"}},
			},
			Handler: getPlatformStats,
		},
		{
			Name: "get_popular_routes",
			Description: "Get the most popular delivery routes on the platform. " +
				"Useful for understanding demand patterns.",
			Schema: Schema{
				"limit": {Kind: KindNumber, Default: 10, Description: "Number of routes to return"},
			},
			Handler: getPopularRoutes,
		},
	}
}

func getCarrierStats(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	endpoint := "/api/carrier/stats"
	if p.Has("user_id") {
		if !client.Privileged() {
			return "You can only view your own carrier stats. Omit the user_id parameter.", nil
		}
		endpoint = fmt.Sprintf("/api/users/%d/carrier-stats", p.Int("user_id"))
	}

	var stats Stats
	if err := client.Get(ctx, endpoint, nil, &stats); err != nil {
		return fmt.Sprintf("Error fetching carrier stats: %v", err), nil
	}
	return fmt.Sprintf("**Carrier Statistics:**\n\n%s", formatStats(stats, carrierStats)), nil
}

func getShipperStats(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	endpoint := "/api/shipper/stats"
	if p.Has("user_id") {
		if !client.Privileged() {
			return "You can only view your own shipper stats. Omit the user_id parameter.", nil
		}
		endpoint = fmt.Sprintf("/api/users/%d/shipper-stats", p.Int("user_id"))
	}

	var stats Stats
	if err := client.Get(ctx, endpoint, nil, &stats); err != nil {
		return fmt.Sprintf("Error fetching shipper stats: %v", err), nil
	}
	return fmt.Sprintf("**Shipper Statistics:**\n\n%s", formatStats(stats, shipperStats)), nil
}

func getMyStats(ctx context.Context, _ Params, client *gateway.Client) (string, error) {
	var combined struct {
		Carrier *Stats `json:"carrier,omitempty"`
		Shipper *Stats `json:"shipper,omitempty"`
	}
	if err := client.Get(ctx, "/api/user/stats", nil, &combined); err != nil {
		return fmt.Sprintf("Error fetching stats: %v", err), nil
	}

	var parts []string
	if combined.Carrier != nil {
		parts = append(parts, fmt.Sprintf("**As a Carrier:**\n%s", formatStats(*combined.Carrier, carrierStats)))
	}
	if combined.Shipper != nil {
		parts = append(parts, fmt.Sprintf("**As a Shipper:**\n%s", formatStats(*combined.Shipper, shipperStats)))
	}

	if len(parts) == 0 {
		return "No statistics available yet. Start using the platform to see your stats!", nil
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

type platformStats struct {
	Users *struct {
		Total  int `json:"total"`
		New    int `json:"new"`
		Active int `json:"active"`
	} `json:"users,omitempty"`
	Trips *struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Completed int `json:"completed"`
	} `json:"trips,omitempty"`
	Packages *struct {
		Total     int `json:"total"`
		Open      int `json:"open"`
		Delivered int `json:"delivered"`
	} `json:"packages,omitempty"`
	Matches *struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Completed int `json:"completed"`
	} `json:"matches,omitempty"`
	Revenue *struct {
		Total float64 `json:"total"`
		Fees  float64 `json:"fees"`
	} `json:"revenue,omitempty"`
}

func getPlatformStats(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	if !client.Privileged() {
		return "Platform statistics are only available to administrators.", nil
	}

	period := p.String("period")

	var stats platformStats
	if err := client.Get(ctx, "/api/admin/statistics", map[string]string{"period": period}, &stats); err != nil {
		return fmt.Sprintf("Error fetching platform stats: %v", err), nil
	}

	lines := []string{fmt.Sprintf("**Platform Statistics (%s):**", period), ""}

	if stats.Users != nil {
		lines = append(lines,
			"**Users:**",
			fmt.Sprintf("  Total: %d", stats.Users.Total),
			fmt.Sprintf("  New (this period): %d", stats.Users.New),
			fmt.Sprintf("  Active: %d", stats.Users.Active),
			"",
		)
	}
	if stats.Trips != nil {
		lines = append(lines,
			"**Trips:**",
			fmt.Sprintf("  Total: %d", stats.Trips.Total),
			fmt.Sprintf("  Active: %d", stats.Trips.Active),
			fmt.Sprintf("  Completed: %d", stats.Trips.Completed),
			"",
		)
	}
	if stats.Packages != nil {
		lines = append(lines,
			"**Packages:**",
			fmt.Sprintf("  Total requests: %d", stats.Packages.Total),
			fmt.Sprintf("  Open: %d", stats.Packages.Open),
			fmt.Sprintf("  Delivered: %d", stats.Packages.Delivered),
			"",
		)
	}
	if stats.Matches != nil {
		lines = append(lines,
			"**Matches:**",
			fmt.Sprintf("  Total: %d", stats.Matches.Total),
			fmt.Sprintf("  Active: %d", stats.Matches.Active),
			fmt.Sprintf("  Completed: %d", stats.Matches.Completed),
			"",
		)
	}
	if stats.Revenue != nil {
		lines = append(lines,
			"**Revenue:**",
			fmt.Sprintf("  Total GMV: $%s", money(stats.Revenue.Total)),
			fmt.Sprintf("  Platform fees: $%s", money(stats.Revenue.Fees)),
		)
	}

	return strings.Join(lines, "\n"), nil
}

type popularRoute struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Count       int    `json:"count"`
}

func getPopularRoutes(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{"limit": strconv.Itoa(p.Int("limit"))}

	var routes []popularRoute
	if err := client.Get(ctx, "/api/routes/popular-packages", query, &routes); err != nil {
		return fmt.Sprintf("Error fetching popular routes: %v", err), nil
	}

	if len(routes) == 0 {
		return "No route data available yet.", nil
	}

	formatted := make([]string, 0, len(routes))
	for i, r := range routes {
		formatted = append(formatted, fmt.Sprintf("%d. %s → %s (%d deliveries)", i+1, r.Origin, r.Destination, r.Count))
	}
	return fmt.Sprintf("**Most Popular Routes:**\n\n%s", strings.Join(formatted, "\n")), nil
}
