package db

import (
	"context"
	"fmt"

	"ecoshore/internal/types"
)

// HistoryRepository reads verified waste-collection records joined with each
// beach's aggregate analytics. It is the read-only query surface the
// training data provider consumes.
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a HistoryRepository backed by the given
// connection (pool or transaction).
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Weather columns are nullable: most store rows predate weather capture and
// the pipeline backfills regional defaults for them.
const verifiedRecordsQuery = `SELECT
	wr.collection_date,
	wr.weight,
	b.severity_score,
	b.total_waste_collected,
	b.total_cleanups,
	wr.temp, wr.humidity, wr.wind_speed, wr.precipitation, wr.uv_index
FROM waste_records wr
JOIN beaches b ON b.id = wr.beach_id
WHERE wr.is_verified
ORDER BY wr.collection_date`

// FetchVerifiedRecords returns all verified historical records, oldest
// first. A reachable store with no matching rows returns an empty slice and
// no error; the caller decides whether that warrants synthetic fallback.
func (r *HistoryRepository) FetchVerifiedRecords(ctx context.Context) ([]types.HistoricalRecord, error) {
	rows, err := r.db.Query(ctx, verifiedRecordsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying verified waste records: %w", err)
	}
	defer rows.Close()

	var records []types.HistoricalRecord
	for rows.Next() {
		var rec types.HistoricalRecord
		if err := rows.Scan(
			&rec.Date,
			&rec.Weight,
			&rec.SeverityScore,
			&rec.TotalWasteCollected,
			&rec.TotalCleanups,
			&rec.Temp, &rec.Humidity, &rec.WindSpeed, &rec.Precipitation, &rec.UVIndex,
		); err != nil {
			return nil, fmt.Errorf("scanning waste record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating waste records: %w", err)
	}

	return records, nil
}
