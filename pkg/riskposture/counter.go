package riskposture

import (
	"fmt"

	"bikedash/pkg/entity"
)

// Level is a display band for a single risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Define the risk thresholds
const mediumRiskThreshold = 0.6
const highRiskThreshold = 0.8

// Band classifies a score. Non-finite scores are treated as 0.
func Band(score float64) Level {
	score = entity.Coerce(score)
	switch {
	case score >= highRiskThreshold:
		return LevelHigh
	case score >= mediumRiskThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// RiskLevelCounts is the number of bikes in each band.
type RiskLevelCounts struct {
	Low    int
	Medium int
	High   int
}

// Total returns the number of bikes counted.
func (c RiskLevelCounts) Total() int {
	return c.Low + c.Medium + c.High
}

func (c RiskLevelCounts) String() string {
	return fmt.Sprintf("Low risk: %d, Medium risk: %d, High risk: %d", c.Low, c.Medium, c.High)
}

// CountRiskLevels counts the number of records that fall in each band.
func CountRiskLevels(records []entity.RiskRecord) RiskLevelCounts {
	var counts RiskLevelCounts
	for _, rec := range records {
		switch Band(rec.RiskScore) {
		case LevelHigh:
			counts.High++
		case LevelMedium:
			counts.Medium++
		default:
			counts.Low++
		}
	}
	return counts
}
