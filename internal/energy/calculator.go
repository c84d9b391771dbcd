// Package energy computes basal and daily energy expenditure from a profile.
//
// BMR uses the revised Harris-Benedict equation throughout. The Mifflin-St Jeor
// variant is intentionally not offered so stored targets stay comparable.
package energy

import (
	"math"

	"fitcoach/internal/apperr"
	"fitcoach/internal/models"
)

// activityMultipliers is the single source of truth for valid activity levels.
var activityMultipliers = map[models.ActivityLevel]float64{
	models.ActivitySedentary:  1.2,
	models.ActivityLight:      1.375,
	models.ActivityModerate:   1.55,
	models.ActivityActive:     1.725,
	models.ActivityVeryActive: 1.9,
}

var goalAdjustments = map[models.FitnessGoal]float64{
	models.GoalWeightLoss: -500,
	models.GoalMuscleGain: 300,
}

// Targets are the rounded figures reported to the user.
type Targets struct {
	BMR            int `json:"bmr"`
	TDEE           int `json:"tdee"`
	TargetCalories int `json:"targetCalories"`
}

// Multiplier returns the TDEE multiplier for an activity level.
func Multiplier(level models.ActivityLevel) (float64, bool) {
	m, ok := activityMultipliers[level]
	return m, ok
}

// GoalAdjustment returns the kcal offset applied to TDEE for a goal.
// Maintenance, endurance and unknown goals get no adjustment.
func GoalAdjustment(goal models.FitnessGoal) float64 {
	return goalAdjustments[goal]
}

// BasalRate is the unrounded Harris-Benedict BMR. Anything other than male
// uses the female coefficients.
func BasalRate(p models.Profile) float64 {
	age := float64(p.Age)
	if p.Gender == models.GenderMale {
		return 88.362 + 13.397*p.Weight + 4.799*p.Height - 5.677*age
	}
	return 447.593 + 9.247*p.Weight + 3.098*p.Height - 4.330*age
}

// Compute derives BMR, TDEE and the goal-adjusted calorie target. It is pure:
// persisting the target is the caller's job.
func Compute(p models.Profile) (Targets, error) {
	if p.Age <= 0 || p.Weight <= 0 || p.Height <= 0 {
		return Targets{}, apperr.New(apperr.IncompleteProfile,
			"Please complete your profile first (age, height, weight, activity level)")
	}
	mult, ok := Multiplier(p.ActivityLevel)
	if !ok {
		return Targets{}, apperr.New(apperr.IncompleteProfile,
			"Please complete your profile first (age, height, weight, activity level)")
	}

	bmr := BasalRate(p)
	tdee := bmr * mult
	return Targets{
		BMR:            int(math.Round(bmr)),
		TDEE:           int(math.Round(tdee)),
		TargetCalories: int(math.Round(tdee + GoalAdjustment(p.FitnessGoal))),
	}, nil
}
