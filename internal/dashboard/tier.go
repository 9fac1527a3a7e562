package dashboard

// Liquidity tiers, bucketed by average daily turnover in yuan.
const (
	TierActive   = "ACTIVE"
	TierModerate = "MODERATE"
	TierSporadic = "SPORADIC"
)

// TierNames is the display order of the tiers.
var TierNames = []string{TierActive, TierModerate, TierSporadic}

// TierFor buckets an instrument by its average daily turnover: a billion
// yuan a day is ACTIVE, a hundred million MODERATE, anything below that
// SPORADIC.
func TierFor(avgDailyTurnover float64) string {
	switch {
	case avgDailyTurnover >= 1e9:
		return TierActive
	case avgDailyTurnover >= 1e8:
		return TierModerate
	default:
		return TierSporadic
	}
}
