package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
)

// Aggregation periods accepted by GetProgress.
const (
	AggDaily   = "daily"
	AggWeekly  = "weekly"
	AggMonthly = "monthly"
)

// ValidAgg reports whether agg is a supported aggregation period.
func ValidAgg(agg string) bool {
	switch agg {
	case AggDaily, AggWeekly, AggMonthly:
		return true
	}
	return false
}

// GetProgress returns per-period, per-exercise progress for a patient over
// sessions started in [start, end), newest period first.
func (db *DB) GetProgress(ctx context.Context, patient string, start, end time.Time, agg string) ([]models.ProgressRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.start_time)::date AS period,
		        s.exercise,
		        COUNT(*)::int,
		        COALESCE(SUM(s.total_repetitions), 0)::int,
		        AVG(s.average_accuracy),
		        AVG(s.consistency),
		        AVG(s.completion_rate),
		        array_agg(DISTINCT s.quality)
		 FROM exercise_sessions s
		 JOIN patients p ON p.id = s.patient_id
		 WHERE p.login = $2 AND s.start_time >= $3 AND s.start_time < $4
		 GROUP BY period, s.exercise
		 ORDER BY period DESC, s.exercise`,
		truncInterval(agg), patient, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var result []models.ProgressRow
	for rows.Next() {
		var (
			period    time.Time
			r         models.ProgressRow
			qualities []string
		)
		if err := rows.Scan(&period, &r.Exercise, &r.Sessions, &r.Repetitions,
			&r.AvgAccuracy, &r.AvgConsistency, &r.AvgCompletion, &qualities); err != nil {
			return nil, fmt.Errorf("scanning progress: %w", err)
		}
		r.Period = period.Format("2006-01-02")
		r.AvgAccuracy = round1(r.AvgAccuracy)
		r.AvgConsistency = round1(r.AvgConsistency)
		r.AvgCompletion = round1(r.AvgCompletion)
		r.BestQuality = bestQuality(qualities)
		result = append(result, r)
	}
	return result, rows.Err()
}

// truncInterval converts an aggregation period to the interval name
// date_trunc expects.
func truncInterval(agg string) string {
	switch agg {
	case AggWeekly:
		return "week"
	case AggMonthly:
		return "month"
	default:
		return "day"
	}
}

var qualityRank = map[string]int{
	exercise.QualityNeedsImprovement: 1,
	exercise.QualityFair:             2,
	exercise.QualityGood:             3,
	exercise.QualityExcellent:        4,
}

// bestQuality returns the highest quality grade in qs, or "" when none is known.
func bestQuality(qs []string) string {
	best := ""
	for _, q := range qs {
		if qualityRank[q] > qualityRank[best] {
			best = q
		}
	}
	return best
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
