package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trip is a carrier trip as returned by the platform API.
type Trip struct {
	ID                   int      `json:"id"`
	OriginCity           string   `json:"origin_city"`
	OriginCountry        string   `json:"origin_country"`
	DestinationCity      string   `json:"destination_city"`
	DestinationCountry   string   `json:"destination_country"`
	DepartureDate        string   `json:"departure_date"`
	ArrivalDate          string   `json:"arrival_date,omitempty"`
	AvailableWeightKg    float64  `json:"available_weight_kg"`
	AvailableSpaceLiters float64  `json:"available_space_liters,omitempty"`
	PricePerKg           float64  `json:"price_per_kg,omitempty"`
	FlatTripPrice        float64  `json:"flat_trip_price,omitempty"`
	TransportationMethod string   `json:"transportation_method"`
	TripStatus           string   `json:"trip_status"`
	Carrier              *Carrier `json:"carrier,omitempty"`
}

// Carrier identifies the user carrying packages on a trip or match.
type Carrier struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

// Package is a package delivery request.
type Package struct {
	ID                  int      `json:"id"`
	PickupCity          string   `json:"pickup_city"`
	PickupCountry       string   `json:"pickup_country,omitempty"`
	DeliveryCity        string   `json:"delivery_city"`
	DeliveryCountry     string   `json:"delivery_country,omitempty"`
	PackageName         string   `json:"package_name"`
	PackageWeightKg     float64  `json:"package_weight_kg"`
	PackageValue        float64  `json:"package_value,omitempty"`
	Fragile             bool     `json:"fragile"`
	UrgencyLevel        string   `json:"urgency_level"`
	MaxPriceBudget      float64  `json:"max_price_budget,omitempty"`
	PickupDatePreferred string   `json:"pickup_date_preferred,omitempty"`
	DeliveryDateNeeded  string   `json:"delivery_date_needed,omitempty"`
	RequestStatus       string   `json:"request_status"`
	Shipper             *Shipper `json:"shipper,omitempty"`
}

// Shipper identifies the user who requested a delivery.
type Shipper struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Match pairs a trip with a package request.
type Match struct {
	ID             int      `json:"id"`
	AgreedPrice    float64  `json:"agreed_price"`
	MatchStatus    string   `json:"match_status"`
	InitiatedBy    string   `json:"initiated_by,omitempty"`
	CarrierMessage string   `json:"carrier_message,omitempty"`
	ShipperMessage string   `json:"shipper_message,omitempty"`
	ConfirmedAt    string   `json:"confirmed_at,omitempty"`
	PickedUpAt     string   `json:"picked_up_at,omitempty"`
	DeliveredAt    string   `json:"delivered_at,omitempty"`
	CarrierTrip    *Trip    `json:"carrier_trip,omitempty"`
	PackageRequest *Package `json:"package_request,omitempty"`
	Carrier        *Carrier `json:"carrier,omitempty"`
	Shipper        *Shipper `json:"shipper,omitempty"`
}

// User is a platform account.
type User struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone,omitempty"`
	PhoneVerified     bool     `json:"phone_verified,omitempty"`
	VerificationLevel string   `json:"verification_level,omitempty"`
	UserTypes         []string `json:"user_types,omitempty"`
	Rating            float64  `json:"rating,omitempty"`
	TotalRatings      int      `json:"total_ratings,omitempty"`
	IsActiveCarrier   *bool    `json:"is_active_carrier,omitempty"`
	IsActiveShipper   *bool    `json:"is_active_shipper,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
}

// Stats is the performance summary for a carrier or shipper.
type Stats struct {
	Trips    *TripStats    `json:"trips,omitempty"`
	Packages *PackageStats `json:"packages,omitempty"`
	Earnings *Earnings     `json:"earnings,omitempty"`
	Spending *Spending     `json:"spending,omitempty"`
	Ratings  *RatingStats  `json:"ratings,omitempty"`
}

type TripStats struct {
	TotalTrips     int     `json:"total_trips"`
	ActiveTrips    int     `json:"active_trips"`
	CompletedTrips int     `json:"completed_trips"`
	SuccessRate    float64 `json:"success_rate,omitempty"`
}

type PackageStats struct {
	TotalRequests     int     `json:"total_requests"`
	DeliveredPackages int     `json:"delivered_packages"`
	InTransit         int     `json:"in_transit,omitempty"`
	SuccessRate       float64 `json:"success_rate,omitempty"`
}

type Earnings struct {
	TotalEarnings      float64  `json:"total_earnings"`
	PendingEarnings    *float64 `json:"pending_earnings,omitempty"`
	MonthlyEarnings    float64  `json:"monthly_earnings,omitempty"`
	AveragePerDelivery float64  `json:"average_per_delivery,omitempty"`
}

type Spending struct {
	TotalSpent        float64 `json:"total_spent"`
	MonthlySpending   float64 `json:"monthly_spending,omitempty"`
	AveragePerPackage float64 `json:"average_per_package,omitempty"`
}

type RatingStats struct {
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

var statusLabels = map[string]string{
	"active":            "🟢 Active",
	"planning":          "📋 Planning",
	"in_transit":        "🚚 In Transit",
	"completed":         "✅ Completed",
	"cancelled":         "❌ Cancelled",
	"open":              "🟢 Open",
	"matched":           "🤝 Matched",
	"delivered":         "✅ Delivered",
	"carrier_requested": "📨 Carrier Requested",
	"shipper_requested": "📨 Shipper Requested",
	"shipper_accepted":  "✅ Shipper Accepted",
	"carrier_accepted":  "✅ Carrier Accepted",
	"confirmed":         "🤝 Confirmed",
	"picked_up":         "📦 Picked Up",
	"pending":           "⏳ Pending",
}

// formatStatus decorates a known status with an emoji label. Unknown
// statuses pass through unchanged so new platform states still render.
func formatStatus(status string) string {
	if label, ok := statusLabels[strings.ToLower(status)]; ok {
		return label
	}
	return status
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatDate renders a timestamp like "Jan 2, 2026, 03:04 PM". Unparseable
// input is returned unchanged.
func formatDate(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006, 03:04 PM")
}

func formatShortDate(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return s
	}
	return t.Format("1/2/2006")
}

func formatDateTime(s string) string {
	t, ok := parseDate(s)
	if !ok {
		return s
	}
	return t.Format("1/2/2006, 3:04:05 PM")
}

// num renders a number the way the API returned it: no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func joinNonEmpty(lines []string) string {
	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func formatTrip(trip Trip) string {
	lines := []string{
		fmt.Sprintf("**Trip #%d**", trip.ID),
		fmt.Sprintf("Route: %s → %s", trip.OriginCity, trip.DestinationCity),
		fmt.Sprintf("Departure: %s", formatDate(trip.DepartureDate)),
	}
	if trip.ArrivalDate != "" {
		lines = append(lines, fmt.Sprintf("Arrival: %s", formatDate(trip.ArrivalDate)))
	}
	lines = append(lines, fmt.Sprintf("Available: %s kg", num(trip.AvailableWeightKg)))
	if trip.AvailableSpaceLiters != 0 {
		lines = append(lines, fmt.Sprintf("Space: %s L", num(trip.AvailableSpaceLiters)))
	}
	lines = append(lines, fmt.Sprintf("Transport: %s", trip.TransportationMethod))
	if trip.PricePerKg != 0 {
		lines = append(lines, fmt.Sprintf("Price: $%s/kg", num(trip.PricePerKg)))
	}
	if trip.FlatTripPrice != 0 {
		lines = append(lines, fmt.Sprintf("Flat Price: $%s", num(trip.FlatTripPrice)))
	}
	lines = append(lines, fmt.Sprintf("Status: %s", formatStatus(trip.TripStatus)))
	if trip.Carrier != nil {
		carrier := fmt.Sprintf("Carrier: %s", trip.Carrier.Name)
		if trip.Carrier.Rating != 0 {
			carrier += fmt.Sprintf(" (%s★)", num(trip.Carrier.Rating))
		}
		lines = append(lines, carrier)
	}
	return joinNonEmpty(lines)
}

func formatTrips(trips []Trip) string {
	if len(trips) == 0 {
		return "No trips found matching your criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d trip(s):\n", len(trips))
	for i, trip := range trips {
		if i > 0 {
			b.WriteString("\n")
		}
		price := ""
		switch {
		case trip.PricePerKg != 0:
			price = fmt.Sprintf("💰 $%s/kg", num(trip.PricePerKg))
		case trip.FlatTripPrice != 0:
			price = fmt.Sprintf("💰 $%s flat", num(trip.FlatTripPrice))
		}
		fmt.Fprintf(&b, "%d. **%s → %s** (Trip #%d)\n   📅 %s | 📦 %skg | %s\n   %s\n   Status: %s\n",
			i+1, trip.OriginCity, trip.DestinationCity, trip.ID,
			formatDate(trip.DepartureDate), num(trip.AvailableWeightKg), trip.TransportationMethod,
			price, formatStatus(trip.TripStatus))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatPackage(pkg Package) string {
	lines := []string{
		fmt.Sprintf("**Package #%d**: %s", pkg.ID, pkg.PackageName),
		fmt.Sprintf("Route: %s → %s", pkg.PickupCity, pkg.DeliveryCity),
		fmt.Sprintf("Weight: %s kg", num(pkg.PackageWeightKg)),
	}
	if pkg.PackageValue != 0 {
		lines = append(lines, fmt.Sprintf("Value: $%s", num(pkg.PackageValue)))
	}
	fragile := "No"
	if pkg.Fragile {
		fragile = "Yes ⚠️"
	}
	lines = append(lines,
		fmt.Sprintf("Fragile: %s", fragile),
		fmt.Sprintf("Urgency: %s", pkg.UrgencyLevel),
	)
	if pkg.MaxPriceBudget != 0 {
		lines = append(lines, fmt.Sprintf("Budget: $%s", num(pkg.MaxPriceBudget)))
	}
	if pkg.PickupDatePreferred != "" {
		lines = append(lines, fmt.Sprintf("Pickup: %s", formatDate(pkg.PickupDatePreferred)))
	}
	if pkg.DeliveryDateNeeded != "" {
		lines = append(lines, fmt.Sprintf("Deliver by: %s", formatDate(pkg.DeliveryDateNeeded)))
	}
	lines = append(lines, fmt.Sprintf("Status: %s", formatStatus(pkg.RequestStatus)))
	if pkg.Shipper != nil {
		lines = append(lines, fmt.Sprintf("Shipper: %s", pkg.Shipper.Name))
	}
	return joinNonEmpty(lines)
}

func formatPackages(packages []Package) string {
	if len(packages) == 0 {
		return "No packages found matching your criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d package(s):\n", len(packages))
	for i, pkg := range packages {
		if i > 0 {
			b.WriteString("\n")
		}
		fragile := ""
		if pkg.Fragile {
			fragile = "⚠️ Fragile | "
		}
		budget := ""
		if pkg.MaxPriceBudget != 0 {
			budget = fmt.Sprintf("💰 Budget: $%s", num(pkg.MaxPriceBudget))
		}
		fmt.Fprintf(&b, "%d. **%s** (Package #%d)\n   📍 %s → %s | ⚖️ %skg\n   %sUrgency: %s\n   %s\n   Status: %s\n",
			i+1, pkg.PackageName, pkg.ID,
			pkg.PickupCity, pkg.DeliveryCity, num(pkg.PackageWeightKg),
			fragile, pkg.UrgencyLevel,
			budget, formatStatus(pkg.RequestStatus))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatMatch(match Match) string {
	lines := []string{
		fmt.Sprintf("**Match #%d**", match.ID),
		fmt.Sprintf("Status: %s", formatStatus(match.MatchStatus)),
		fmt.Sprintf("Agreed Price: $%s", num(match.AgreedPrice)),
	}
	if match.InitiatedBy != "" {
		lines = append(lines, fmt.Sprintf("Initiated by: %s", match.InitiatedBy))
	}

	lines = append(lines, "**Carrier:**")
	if match.Carrier != nil {
		carrier := fmt.Sprintf("  %s (ID: %d)", match.Carrier.Name, match.Carrier.ID)
		if match.Carrier.Rating != 0 {
			carrier += fmt.Sprintf(" - %s★", num(match.Carrier.Rating))
		}
		lines = append(lines, carrier)
		if match.Carrier.Email != "" {
			lines = append(lines, fmt.Sprintf("  Email: %s", match.Carrier.Email))
		}
	} else {
		lines = append(lines, "  Not available")
	}

	lines = append(lines, "**Shipper:**")
	if match.Shipper != nil {
		lines = append(lines, fmt.Sprintf("  %s (ID: %d)", match.Shipper.Name, match.Shipper.ID))
		if match.Shipper.Email != "" {
			lines = append(lines, fmt.Sprintf("  Email: %s", match.Shipper.Email))
		}
	} else {
		lines = append(lines, "  Not available")
	}

	if match.CarrierTrip != nil {
		lines = append(lines,
			"**Trip:**",
			fmt.Sprintf("  %s → %s", match.CarrierTrip.OriginCity, match.CarrierTrip.DestinationCity),
			fmt.Sprintf("  Departure: %s", formatDate(match.CarrierTrip.DepartureDate)),
		)
	}
	if match.PackageRequest != nil {
		lines = append(lines,
			"**Package:**",
			fmt.Sprintf("  %s - %skg", match.PackageRequest.PackageName, num(match.PackageRequest.PackageWeightKg)),
		)
	}

	lines = append(lines, "**Timeline:**")
	if match.ConfirmedAt != "" {
		lines = append(lines, fmt.Sprintf("  Confirmed: %s", formatDate(match.ConfirmedAt)))
	}
	if match.PickedUpAt != "" {
		lines = append(lines, fmt.Sprintf("  Picked up: %s", formatDate(match.PickedUpAt)))
	}
	if match.DeliveredAt != "" {
		lines = append(lines, fmt.Sprintf("  Delivered: %s", formatDate(match.DeliveredAt)))
	}

	return joinNonEmpty(lines)
}

func formatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No matches found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d match(es):\n", len(matches))
	for i, match := range matches {
		if i > 0 {
			b.WriteString("\n")
		}
		route := "Route not available"
		if match.CarrierTrip != nil {
			route = fmt.Sprintf("%s → %s", match.CarrierTrip.OriginCity, match.CarrierTrip.DestinationCity)
		}
		pkg := "Package not available"
		if match.PackageRequest != nil {
			pkg = match.PackageRequest.PackageName
		}
		carrierName := "N/A"
		if match.Carrier != nil {
			carrierName = match.Carrier.Name
		}
		shipperName := "N/A"
		if match.Shipper != nil {
			shipperName = match.Shipper.Name
		}
		fmt.Fprintf(&b, "%d. **Match #%d** - %s\n   📦 %s | 🚗 %s\n   💰 $%s\n   Carrier: %s | Shipper: %s\n",
			i+1, match.ID, formatStatus(match.MatchStatus),
			pkg, route, num(match.AgreedPrice), carrierName, shipperName)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatUser(user User) string {
	roles := "None"
	if len(user.UserTypes) > 0 {
		roles = strings.Join(user.UserTypes, ", ")
	}
	lines := []string{
		fmt.Sprintf("**User #%d**: %s", user.ID, user.Name),
		fmt.Sprintf("Email: %s", user.Email),
	}
	if user.Phone != "" {
		verified := "(unverified)"
		if user.PhoneVerified {
			verified = "✓"
		}
		lines = append(lines, fmt.Sprintf("Phone: %s %s", user.Phone, verified))
	}
	lines = append(lines, fmt.Sprintf("Roles: %s", roles))
	if user.VerificationLevel != "" {
		lines = append(lines, fmt.Sprintf("Verification: %s", user.VerificationLevel))
	}
	if user.Rating != 0 {
		lines = append(lines, fmt.Sprintf("Rating: %s★ (%d reviews)", num(user.Rating), user.TotalRatings))
	}
	if user.IsActiveCarrier != nil {
		lines = append(lines, fmt.Sprintf("Active Carrier: %s", yesNo(*user.IsActiveCarrier)))
	}
	if user.IsActiveShipper != nil {
		lines = append(lines, fmt.Sprintf("Active Shipper: %s", yesNo(*user.IsActiveShipper)))
	}
	if user.CreatedAt != "" {
		lines = append(lines, fmt.Sprintf("Member since: %s", formatDate(user.CreatedAt)))
	}
	return joinNonEmpty(lines)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

type statsRole int

const (
	carrierStats statsRole = iota
	shipperStats
)

func formatStats(stats Stats, role statsRole) string {
	var lines []string

	if role == carrierStats && stats.Trips != nil {
		lines = append(lines,
			"**Trip Statistics:**",
			fmt.Sprintf("  Total trips: %d", stats.Trips.TotalTrips),
			fmt.Sprintf("  Active: %d", stats.Trips.ActiveTrips),
			fmt.Sprintf("  Completed: %d", stats.Trips.CompletedTrips),
		)
		if stats.Trips.SuccessRate != 0 {
			lines = append(lines, fmt.Sprintf("  Success rate: %s%%", num(stats.Trips.SuccessRate)))
		}
	}

	if role == shipperStats && stats.Packages != nil {
		lines = append(lines,
			"**Package Statistics:**",
			fmt.Sprintf("  Total requests: %d", stats.Packages.TotalRequests),
			fmt.Sprintf("  Delivered: %d", stats.Packages.DeliveredPackages),
		)
		if stats.Packages.InTransit != 0 {
			lines = append(lines, fmt.Sprintf("  In transit: %d", stats.Packages.InTransit))
		}
		if stats.Packages.SuccessRate != 0 {
			lines = append(lines, fmt.Sprintf("  Success rate: %s%%", num(stats.Packages.SuccessRate)))
		}
	}

	if stats.Earnings != nil {
		lines = append(lines,
			"",
			"**Earnings:**",
			fmt.Sprintf("  Total: $%s", money(stats.Earnings.TotalEarnings)),
		)
		if stats.Earnings.MonthlyEarnings != 0 {
			lines = append(lines, fmt.Sprintf("  This month: $%s", money(stats.Earnings.MonthlyEarnings)))
		}
		if stats.Earnings.AveragePerDelivery != 0 {
			lines = append(lines, fmt.Sprintf("  Avg per delivery: $%s", money(stats.Earnings.AveragePerDelivery)))
		}
	}

	if stats.Spending != nil {
		lines = append(lines,
			"",
			"**Spending:**",
			fmt.Sprintf("  Total: $%s", money(stats.Spending.TotalSpent)),
		)
		if stats.Spending.MonthlySpending != 0 {
			lines = append(lines, fmt.Sprintf("  This month: $%s", money(stats.Spending.MonthlySpending)))
		}
		if stats.Spending.AveragePerPackage != 0 {
			lines = append(lines, fmt.Sprintf("  Avg per package: $%s", money(stats.Spending.AveragePerPackage)))
		}
	}

	if stats.Ratings != nil {
		lines = append(lines,
			"",
			"**Ratings:**",
			fmt.Sprintf("  Average: %s★", num(stats.Ratings.AverageRating)),
			fmt.Sprintf("  Total reviews: %d", stats.Ratings.TotalRatings),
		)
	}

	return strings.Join(lines, "\n")
}
