// Package scoring converts weight and height measurements into comparable
// progress points. All arithmetic is fixed-point decimal so values persisted
// to the analytics store round-trip identically between runs.
package scoring

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every derived value is rounded to.
const Places = 4

// expPrecision is the number of digits the exponential multiplier is computed to
// before it is applied to the BMI difference.
const expPrecision = 16

var (
	// ErrInvalidInput is returned when a measurement cannot produce a BMI.
	ErrInvalidInput = errors.New("invalid scoring input")

	referenceBMI    = decimal.NewFromInt(30)
	scaleDivisor    = decimal.NewFromInt(7)
	floorMultiplier = decimal.RequireFromString("0.5")
	centimetres     = decimal.NewFromInt(100)

	exp = func(d decimal.Decimal) (decimal.Decimal, error) { return d.ExpTaylor(expPrecision) }
)

// BMI returns weight(kg) / height(m)^2 for a height given in centimetres.
func BMI(weightKg, heightCm decimal.Decimal) (decimal.Decimal, error) {
	if !heightCm.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: height must be positive, got %s", ErrInvalidInput, heightCm)
	}
	heightM := heightCm.Div(centimetres)
	return weightKg.Div(heightM.Mul(heightM)).RoundBank(Places), nil
}

// ProgressScore rewards a BMI reduction with an exponential multiplier that grows
// while the current BMI stays above the reference value of 30:
//
//	(startBMI - currentBMI) * max(e^((30 - currentBMI) / 7), 0.5)
func ProgressScore(startBMI, currentBMI decimal.Decimal) (decimal.Decimal, error) {
	diff := startBMI.Sub(currentBMI)
	exponent := referenceBMI.Sub(currentBMI).Div(scaleDivisor)

	multiplier, err := exp(exponent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("progress multiplier e^%s: %w", exponent, err)
	}
	multiplier = decimal.Max(multiplier, floorMultiplier)

	return diff.Mul(multiplier).RoundBank(Places), nil
}

// TargetPoint is the score a participant earns on reaching the goal weight.
func TargetPoint(startWeight, targetWeight, height decimal.Decimal) (decimal.Decimal, error) {
	return pointBetween(startWeight, targetWeight, height)
}

// CurrentPoint is the score for the most recent weight measurement.
func CurrentPoint(startWeight, currentWeight, height decimal.Decimal) (decimal.Decimal, error) {
	return pointBetween(startWeight, currentWeight, height)
}

func pointBetween(startWeight, weight, height decimal.Decimal) (decimal.Decimal, error) {
	startBMI, err := BMI(startWeight, height)
	if err != nil {
		return decimal.Zero, err
	}
	bmi, err := BMI(weight, height)
	if err != nil {
		return decimal.Zero, err
	}
	return ProgressScore(startBMI, bmi)
}
