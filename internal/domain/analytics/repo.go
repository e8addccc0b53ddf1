package analytics

import "context"

// Bucket is one age group in the risk distribution.
type Bucket struct {
	AgeGroup string `json:"age_group"`
	Total    int    `json:"total"`
	AtRisk   int    `json:"at_risk"`
}

// ageGroups fixes the bucket boundaries and display order.
var ageGroups = []string{"0-18", "19-30", "31-40", "41-50", "51-60", "61+"}

type RiskRepository interface {
	// AgeRiskDistribution returns, per age group, the number of patients and
	// the number flagged with a Stroke health notification.
	AgeRiskDistribution(ctx context.Context) ([]Bucket, error)
}
