package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// baseFeeMultiplier is the fixed minimum charge applied to every
// completed reservation, expressed in hours of the snapshotted rate.
var baseFeeMultiplier = decimal.NewFromFloat(1.5)

// CalculateCost bills a completed reservation from its two timestamps
// and the hourly rate snapshotted at booking time:
//
//	total = 1.5*rate + round(elapsedHours*rate, 2)
//
// The metered charge is linear in elapsed time with no deductions; the
// result is rounded to 2 decimal places, half away from zero. Negative
// elapsed time bills as zero elapsed.
func CalculateCost(parkedAt, leftAt time.Time, hourlyRate decimal.Decimal) decimal.Decimal {
	elapsed := leftAt.Sub(parkedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := decimal.NewFromInt(int64(elapsed / time.Second)).Div(decimal.NewFromInt(3600))

	baseFee := hourlyRate.Mul(baseFeeMultiplier)
	variableFee := hours.Mul(hourlyRate).Round(2)
	return baseFee.Add(variableFee).Round(2)
}
