package riskposture

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"bikedash/pkg/entity"
)

// DefaultTopN is the number of individual bikes shown before the rest are folded into "Other".
const DefaultTopN = 8

const (
	otherScorePlaces = 3
	valuePlaces      = 2
	percent          = 100
)

// Aggregate turns risk records into pie chart rows: the topN highest scores
// labelled "B<bike_id>", followed by one "Other" row summing the remainder
// when there is one. Every row gets its share of the total as a percentage.
//
// Missing or non-finite scores count as 0. A negative topN is treated as 0.
// The input slice and its records are left untouched.
func Aggregate(records []entity.RiskRecord, topN int) []entity.ChartRow {
	if len(records) == 0 {
		return []entity.ChartRow{}
	}
	if topN < 0 {
		topN = 0
	}

	sorted := make([]entity.RiskRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score() > sorted[j].Score()
	})

	if topN > len(sorted) {
		topN = len(sorted)
	}
	top, rest := sorted[:topN], sorted[topN:]

	rows := make([]entity.ChartRow, 0, len(top)+1)
	for _, rec := range top {
		rows = append(rows, entity.ChartRow{
			RiskRecord: entity.RiskRecord{
				BikeID:    rec.BikeID,
				RiskScore: rec.Score(),
				Extra:     cloneExtra(rec.Extra),
			},
			Name: "B" + rec.BikeID.String(),
		})
	}

	if len(rest) > 0 {
		var sum float64
		for _, rec := range rest {
			sum += rec.Score()
		}
		rows = append(rows, entity.ChartRow{
			RiskRecord: entity.RiskRecord{
				BikeID:    entity.OtherBikeID,
				RiskScore: round(sum, otherScorePlaces),
			},
			Name: entity.OtherBikeID.String(),
		})
	}

	var total float64
	for _, row := range rows {
		total += row.Score()
	}
	if total == 0 {
		total = 1
	}

	for i := range rows {
		rows[i].Value = round(rows[i].Score()/total*percent, valuePlaces)
	}

	return rows
}

// round rounds half away from zero on the shortest decimal form of v.
func round(v float64, places int32) float64 {
	v = entity.Coerce(v)
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
