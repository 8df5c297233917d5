package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pasabayan/chatd/internal/gateway"
)

// Transaction is a payment record for a delivery match.
type Transaction struct {
	ID              int      `json:"id"`
	ShipperID       int      `json:"shipper_id"`
	CarrierID       int      `json:"carrier_id"`
	DeliveryMatchID int      `json:"delivery_match_id"`
	TotalAmount     float64  `json:"total_amount"`
	PlatformFee     float64  `json:"platform_fee"`
	CarrierAmount   float64  `json:"carrier_amount"`
	TipAmount       float64  `json:"tip_amount,omitempty"`
	TaxAmount       float64  `json:"tax_amount,omitempty"`
	Status          string   `json:"status"`
	PayoutStatus    string   `json:"payout_status,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	Shipper         *Shipper `json:"shipper,omitempty"`
	Carrier         *Carrier `json:"carrier,omitempty"`
}

var transactionStatusLabels = map[string]string{
	"pending":    "⏳ Pending",
	"authorized": "🔐 Authorized",
	"captured":   "💳 Captured",
	"completed":  "✅ Completed",
	"refunded":   "↩️ Refunded",
	"failed":     "❌ Failed",
}

func formatTransactionStatus(status string) string {
	if label, ok := transactionStatusLabels[strings.ToLower(status)]; ok {
		return label
	}
	return status
}

// PaymentTools returns the catalog entries for payments and payouts.
func PaymentTools() []Tool {
	return []Tool{
		{
			Name: "list_transactions",
			Description: "List payment transactions for the authenticated user. " +
				"Shows all payments made or received.",
			Schema: Schema{
				"status": {Kind: KindEnum, Optional: true, Description: "Filter by transaction status",
					Enum: []string{"pending", "authorized", "captured", "completed", "refunded", "failed"}},
				"limit": {Kind: KindNumber, Default: 10, Description: "Maximum number of results"},
			},
			Handler: listTransactions,
		},
		{
			Name: "get_transaction",
			Description: "Get detailed information about a specific transaction. " +
				"Can look up by transaction ID or match ID.",
			Schema: Schema{
				"transaction_id": {Kind: KindNumber, Optional: true, Description: "The transaction ID"},
				"match_id":       {Kind: KindNumber, Optional: true, Description: "The match ID to find transaction for"},
			},
			Handler: getTransaction,
		},
		{
			Name: "get_earnings_summary",
			Description: "Get earnings summary for a carrier. " +
				"Shows total earnings, pending payouts, and breakdown by period.",
			Schema: Schema{
				"period": {Kind: KindEnum, Default: "month", Description: "Time period for earnings summary",
					Enum: []string{"week", "month", "year", "all"}},
			},
			Handler: getEarningsSummary,
		},
		{
			Name: "get_spending_summary",
			Description: "Get spending summary for a shipper. " +
				"Shows total spent on deliveries and breakdown by period.",
			Schema: Schema{
				"period": {Kind: KindEnum, Default: "month", Description: "Time period for spending summary",
					Enum: []string{"week", "month", "year", "all"}},
			},
			Handler: getSpendingSummary,
		},
	}
}

func listTransactions(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	query := map[string]string{
		"status":   p.String("status"),
		"per_page": strconv.Itoa(p.Int("limit")),
	}

	var transactions []Transaction
	if err := client.Get(ctx, "/api/payments", query, &transactions); err != nil {
		return fmt.Sprintf("Error fetching transactions: %v", err), nil
	}

	if len(transactions) == 0 {
		return "No transactions found.", nil
	}

	formatted := make([]string, 0, len(transactions))
	for i, t := range transactions {
		tip := ""
		if t.TipAmount != 0 {
			tip = fmt.Sprintf("Tip: $%s", money(t.TipAmount))
		}
		formatted = append(formatted, joinNonEmpty([]string{
			fmt.Sprintf("%d. **Transaction #%d** - %s", i+1, t.ID, formatTransactionStatus(t.Status)),
			fmt.Sprintf("   Amount: $%s", money(t.TotalAmount)),
			fmt.Sprintf("   Platform fee: $%s", money(t.PlatformFee)),
			fmt.Sprintf("   Carrier receives: $%s", money(t.CarrierAmount)),
			tip,
			fmt.Sprintf("   Match #%d", t.DeliveryMatchID),
			fmt.Sprintf("   Date: %s", formatShortDate(t.CreatedAt)),
		}))
	}

	return fmt.Sprintf("**Your Transactions:**\n\n%s", strings.Join(formatted, "\n\n")), nil
}

func getTransaction(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	if !p.Has("transaction_id") && !p.Has("match_id") {
		return "Please provide either a transaction_id or match_id.", nil
	}

	path := fmt.Sprintf("/api/payments/%d", p.Int("transaction_id"))
	if !p.Has("transaction_id") {
		path = fmt.Sprintf("/api/matches/%d/transaction", p.Int("match_id"))
	}

	var t Transaction
	if err := client.Get(ctx, path, nil, &t); err != nil {
		return fmt.Sprintf("Error fetching transaction: %v", err), nil
	}

	lines := []string{
		fmt.Sprintf("**Transaction #%d**", t.ID),
		fmt.Sprintf("Status: %s", formatTransactionStatus(t.Status)),
		"**Amounts:**",
		fmt.Sprintf("  Total: $%s", money(t.TotalAmount)),
		fmt.Sprintf("  Platform fee: $%s", money(t.PlatformFee)),
		fmt.Sprintf("  Carrier receives: $%s", money(t.CarrierAmount)),
	}
	if t.TipAmount != 0 {
		lines = append(lines, fmt.Sprintf("  Tip: $%s", money(t.TipAmount)))
	}
	if t.TaxAmount != 0 {
		lines = append(lines, fmt.Sprintf("  Tax: $%s", money(t.TaxAmount)))
	}
	lines = append(lines, "**Participants:**")
	if t.Shipper != nil {
		lines = append(lines, fmt.Sprintf("  Shipper: %s (%s)", t.Shipper.Name, t.Shipper.Email))
	}
	if t.Carrier != nil {
		lines = append(lines, fmt.Sprintf("  Carrier: %s (%s)", t.Carrier.Name, t.Carrier.Email))
	}
	lines = append(lines, fmt.Sprintf("Match ID: %d", t.DeliveryMatchID))
	if t.PayoutStatus != "" {
		lines = append(lines, fmt.Sprintf("Payout status: %s", t.PayoutStatus))
	}
	lines = append(lines,
		fmt.Sprintf("Created: %s", formatDateTime(t.CreatedAt)),
		fmt.Sprintf("Updated: %s", formatDateTime(t.UpdatedAt)),
	)

	return joinNonEmpty(lines), nil
}

type earningsReport struct {
	Earnings *Earnings  `json:"earnings,omitempty"`
	Trips    *TripStats `json:"trips,omitempty"`
}

func getEarningsSummary(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	var report earningsReport
	if err := client.Get(ctx, "/api/carrier/stats", nil, &report); err != nil {
		return fmt.Sprintf("Error fetching earnings: %v", err), nil
	}

	if report.Earnings == nil {
		return "No earnings data available. Complete deliveries to start earning!", nil
	}

	lines := []string{
		fmt.Sprintf("**Earnings Summary (%s):**", p.String("period")),
		fmt.Sprintf("💰 Total earnings: $%s", money(report.Earnings.TotalEarnings)),
	}
	if report.Earnings.MonthlyEarnings != 0 {
		lines = append(lines, fmt.Sprintf("📅 This month: $%s", money(report.Earnings.MonthlyEarnings)))
	}
	if report.Earnings.PendingEarnings != nil {
		lines = append(lines, fmt.Sprintf("⏳ Pending payout: $%s", money(*report.Earnings.PendingEarnings)))
	}
	if report.Earnings.AveragePerDelivery != 0 {
		lines = append(lines, fmt.Sprintf("📊 Average per delivery: $%s", money(report.Earnings.AveragePerDelivery)))
	}
	if report.Trips != nil {
		lines = append(lines, fmt.Sprintf("✅ Completed deliveries: %d", report.Trips.CompletedTrips))
	}

	return strings.Join(lines, "\n"), nil
}

type spendingReport struct {
	Spending *Spending     `json:"spending,omitempty"`
	Packages *PackageStats `json:"packages,omitempty"`
}

func getSpendingSummary(ctx context.Context, p Params, client *gateway.Client) (string, error) {
	var report spendingReport
	if err := client.Get(ctx, "/api/shipper/stats", nil, &report); err != nil {
		return fmt.Sprintf("Error fetching spending: %v", err), nil
	}

	if report.Spending == nil {
		return "No spending data available. Ship packages to see your spending summary!", nil
	}

	lines := []string{
		fmt.Sprintf("**Spending Summary (%s):**", p.String("period")),
		fmt.Sprintf("💳 Total spent: $%s", money(report.Spending.TotalSpent)),
	}
	if report.Spending.MonthlySpending != 0 {
		lines = append(lines, fmt.Sprintf("📅 This month: $%s", money(report.Spending.MonthlySpending)))
	}
	if report.Spending.AveragePerPackage != 0 {
		lines = append(lines, fmt.Sprintf("📊 Average per package: $%s", money(report.Spending.AveragePerPackage)))
	}
	if report.Packages != nil {
		lines = append(lines, fmt.Sprintf("📦 Packages delivered: %d", report.Packages.DeliveredPackages))
	}

	return strings.Join(lines, "\n"), nil
}
