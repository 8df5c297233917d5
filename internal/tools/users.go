package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pasabayan/chatd/internal/gateway"
)

// UserTools returns the catalog entries for user accounts and profiles.
func UserTools() []Tool {
	return []Tool{
		{
			Name: "get_my_profile",
			Description: "Get the authenticated user's own profile information. " +
				"Returns details like name, email, roles, ratings, and verification status.",
			Schema:  Schema{},
			Handler: getMyProfile,
		},
		{
			Name: "get_user_profile",
			Description: "Get a user's profile by their ID. " +
				"Admin only - use this to look up user details for support purposes.",
			Schema: Schema{
				"user_id": {Kind: KindNumber, Description: "The user ID to look up"},
			},
			Handler: getUserProfile,
		},
		{
			Name: "find_user_by_email",
			Description: "Find a user by their email address. " +
				"Admin only - use this to look up users when you only have their email.",
			Schema: Schema{
				"email": {Kind: KindString, Description: "The email address to search for"},
			},
			Handler: findUserByEmail,
		},
		{
			Name: "get_user_ratings",
			Description: "Get ratings and reviews for a specific user. " +
				"Shows their rating history and feedback from other users.",
			Schema: Schema{
				"user_id": {Kind: KindNumber, Description: "The user ID to get ratings for"},
				"limit":   {Kind: KindNumber, Default: 10, Description: "Maximum number of ratings to return"},
			},
			Handler: getUserRatings,
		},
		{
			Name: "get_carrier_profile",
			Description: "Get a carrier's public profile including their business info, " +
				"vehicle details, and ratings.",
			Schema: Schema{
				"carrier_id": {Kind: KindNumber, Description: "The carrier's user ID"},
			},
			Handler: getCarrierProfile,
		},
	}
}

func getMyProfile(ctx context.Context, _ Params, client *gateway.Client) (string, error) {
	var user User
	if err := client.Get(ctx, "/api/user", nil, &user); err != nil {
		return fmt.Sprintf("Error fetching your profile: %v", err), nil
	}
	return formatUser(user), nil
}

func getUserProfile(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	if !client.Privileged() {
		return "This tool requires admin access. You can only view your own profile with get_my_profile.", nil
	}

	id := p.Int("user_id")

	var user User
	if err := client.Get(ctx, fmt.Sprintf("/api/users/%d", id), nil, &user); err != nil {
		return fmt.Sprintf("Error fetching user #%d: %v", id, err), nil
	}
	return formatUser(user), nil
}

func findUserByEmail(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	if !client.Privileged() {
		return "This tool requires admin access. Regular users cannot search for other users.", nil
	}

	email := p.String("email")

	var user User
	err := client.Get(ctx, "/api/users/find", map[string]string{"email": email}, &user)
	if err != nil {
		if gateway.IsNotFound(err) {
			return fmt.Sprintf("No user found with email: %s", email), nil
		}
		return fmt.Sprintf("Error searching for user: %v", err), nil
	}
	return formatUser(user), nil
}

type rating struct {
	Rating     float64 `json:"rating"`
	ReviewText string  `json:"review_text,omitempty"`
	RatedAt    string  `json:"rated_at"`
	Rater      *struct {
		Name string `json:"name"`
	} `json:"rater,omitempty"`
}

func getUserRatings(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("user_id")
	query := map[string]string{"per_page": strconv.Itoa(p.Int("limit"))}

	var ratings []rating
	if err := client.Get(ctx, fmt.Sprintf("/api/users/%d/ratings", id), query, &ratings); err != nil {
		return fmt.Sprintf("Error fetching ratings: %v", err), nil
	}

	if len(ratings) == 0 {
		return fmt.Sprintf("No ratings found for user #%d.", id), nil
	}

	formatted := make([]string, 0, len(ratings))
	for i, r := range ratings {
		review := r.ReviewText
		if review == "" {
			review = "No review text"
		}
		rater := "Anonymous"
		if r.Rater != nil && r.Rater.Name != "" {
			rater = r.Rater.Name
		}
		formatted = append(formatted, fmt.Sprintf("%d. %s (%s/5)\n   %s\n   By: %s - %s",
			i+1, stars(r.Rating), num(r.Rating), review, rater, formatShortDate(r.RatedAt)))
	}

	return fmt.Sprintf("**Ratings for User #%d:**\n\n%s", id, strings.Join(formatted, "\n\n")), nil
}

// stars renders a five-star bar, rounding to the nearest whole star.
func stars(value float64) string {
	filled := int(value + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

type carrierProfile struct {
	User
	CarrierProfile *struct {
		BusinessName string `json:"business_name,omitempty"`
		VehicleType  string `json:"vehicle_type,omitempty"`
		Bio          string `json:"bio,omitempty"`
	} `json:"carrier_profile,omitempty"`
	CompletedDeliveries *int `json:"completed_deliveries,omitempty"`
}

func getCarrierProfile(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	id := p.Int("carrier_id")

	var carrier carrierProfile
	if err := client.Get(ctx, fmt.Sprintf("/api/carriers/%d", id), nil, &carrier); err != nil {
		return fmt.Sprintf("Error fetching carrier profile: %v", err), nil
	}

	ratingLine := "No ratings yet"
	if carrier.Rating != 0 {
		ratingLine = fmt.Sprintf("Rating: %s★ (%d reviews)", num(carrier.Rating), carrier.TotalRatings)
	}

	lines := []string{
		fmt.Sprintf("**Carrier: %s**", carrier.Name),
		ratingLine,
	}
	if carrier.VerificationLevel != "" {
		lines = append(lines, fmt.Sprintf("Verification: %s", carrier.VerificationLevel))
	}
	if profile := carrier.CarrierProfile; profile != nil {
		if profile.BusinessName != "" {
			lines = append(lines, fmt.Sprintf("Business: %s", profile.BusinessName))
		}
		if profile.VehicleType != "" {
			lines = append(lines, fmt.Sprintf("Vehicle: %s", profile.VehicleType))
		}
		if profile.Bio != "" {
			lines = append(lines, fmt.Sprintf("\nBio: %s", profile.Bio))
		}
	}
	if carrier.CompletedDeliveries != nil {
		lines = append(lines, fmt.Sprintf("Completed deliveries: %d", *carrier.CompletedDeliveries))
	}

	return joinNonEmpty(lines), nil
}
