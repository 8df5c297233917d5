package tools

import "github.com/pasabayan/chatd/internal/log"

// Catalog builds the full Pasabayan registry: trips, packages, matches,
// users, statistics, and payments.
func Catalog(logger log.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, group := range [][]Tool{
		TripTools(),
		PackageTools(),
		MatchTools(),
		UserTools(),
		StatsTools(),
		PaymentTools(),
	} {
		for _, t := range group {
			if err := r.Register(t); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
