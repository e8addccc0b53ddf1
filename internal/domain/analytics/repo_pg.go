package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type riskRepoPG struct{ pool *pgxpool.Pool }

func NewRiskRepoPG(pool *pgxpool.Pool) RiskRepository {
	return &riskRepoPG{pool: pool}
}

// The aggregation runs in one query instead of a per-patient notification
// lookup. Age groups the database never produces still appear in the result,
// zero-filled, in fixed order.
func (r *riskRepoPG) AgeRiskDistribution(ctx context.Context) ([]Bucket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			CASE
				WHEN x.age <= 18 THEN '0-18'
				WHEN x.age <= 30 THEN '19-30'
				WHEN x.age <= 40 THEN '31-40'
				WHEN x.age <= 50 THEN '41-50'
				WHEN x.age <= 60 THEN '51-60'
				ELSE '61+'
			END AS age_group,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE x.at_risk) AS at_risk
		FROM (
			SELECT
				date_part('year', age(p.date_of_birth))::int AS age,
				EXISTS (
					SELECT 1 FROM health_notifications n
					WHERE n.patient_id = p.user_id AND n.disease = 'Stroke'
				) AS at_risk
			FROM patients p
		) x
		GROUP BY age_group`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]Bucket)
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.AgeGroup, &b.Total, &b.AtRisk); err != nil {
			return nil, err
		}
		counts[b.AgeGroup] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(ageGroups))
	for _, g := range ageGroups {
		b := counts[g]
		b.AgeGroup = g
		buckets = append(buckets, b)
	}
	return buckets, nil
}
