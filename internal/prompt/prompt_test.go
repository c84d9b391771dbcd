package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/apperr"
	"fitcoach/internal/models"
)

func fullProfile() models.Profile {
	return models.Profile{
		Age:              29,
		Gender:           models.GenderFemale,
		Height:           165,
		Weight:           62.5,
		FitnessGoal:      models.GoalMuscleGain,
		ActivityLevel:    models.ActivityLight,
		DietPreference:   models.DietVegan,
		HealthConditions: []models.HealthCondition{models.ConditionPCOS},
		Allergies:        []string{"peanuts", " soy "},
		TargetCalories:   2100,
	}
}

func TestWorkoutEmbedsProfile(t *testing.T) {
	system, user, err := Workout(fullProfile())
	require.NoError(t, err)

	assert.Contains(t, system, "fitness trainer")
	assert.Contains(t, system, "ONLY valid JSON")
	assert.Contains(t, user, "29-year-old female who weighs 62.5kg")
	assert.Contains(t, user, "Fitness Goal: muscle_gain")
	assert.Contains(t, user, "Activity Level: light")
	assert.Contains(t, user, "Health Conditions: pcos")
	assert.Contains(t, user, `"exercises": [`)
	assert.Contains(t, user, "no markdown formatting")
}

func TestWorkoutRequiresAgeWeightGoal(t *testing.T) {
	for _, mutate := range []func(*models.Profile){
		func(p *models.Profile) { p.Age = 0 },
		func(p *models.Profile) { p.Weight = 0 },
		func(p *models.Profile) { p.FitnessGoal = "" },
	} {
		p := fullProfile()
		mutate(&p)
		_, _, err := Workout(p)
		assert.True(t, apperr.Is(err, apperr.IncompleteProfile))
	}
}

func TestMealRestatesMealTypesAndCount(t *testing.T) {
	system, user, err := Meal(fullProfile())
	require.NoError(t, err)

	assert.Contains(t, system, "nutritionist")
	assert.Contains(t, user, "Target Calories: 2100 per day")
	assert.Contains(t, user, `"targetCalories": 2100`)
	assert.Contains(t, user, "Diet Preference: vegan")
	assert.Contains(t, user, "Allergies: peanuts, soy")
	assert.Contains(t, user, "Age: 29, Gender: female, Weight: 62.5kg, Activity Level: light")
	assert.Contains(t, user, `"breakfast", "lunch", "dinner", or "snack"`)
	assert.Contains(t, user, `not "snacks"`)
	assert.Contains(t, user, "Include 3-4 meals per day")
	assert.Contains(t, user, "low GI foods")
	assert.NotContains(t, user, "diabetes management")
}

func TestMealRequiresCaloriesAndDiet(t *testing.T) {
	p := fullProfile()
	p.TargetCalories = 0
	_, _, err := Meal(p)
	assert.True(t, apperr.Is(err, apperr.IncompleteProfile))

	p = fullProfile()
	p.DietPreference = ""
	_, _, err = Meal(p)
	assert.True(t, apperr.Is(err, apperr.IncompleteProfile))
}

func TestEmptyListsRenderAsNone(t *testing.T) {
	p := fullProfile()
	p.HealthConditions = []models.HealthCondition{models.ConditionNone}
	p.Allergies = nil

	_, user, err := Meal(p)
	require.NoError(t, err)
	assert.Contains(t, user, "Health Conditions: None")
	assert.Contains(t, user, "Allergies: None")
}

func TestCoachToleratesEmptyProfile(t *testing.T) {
	out := Coach(models.Profile{})
	assert.Contains(t, out, "Age: Not specified")
	assert.Contains(t, out, "Goal: Not specified")
	assert.Contains(t, out, "Health Conditions: None")

	out = Coach(fullProfile())
	assert.Contains(t, out, "Age: 29")
	assert.Contains(t, out, "Diet Preference: vegan")
}

func TestMealRendersMissingProfileFieldsIndividually(t *testing.T) {
	p := fullProfile()
	p.Age = 0
	p.Weight = 0
	p.Gender = ""

	_, user, err := Meal(p)
	require.NoError(t, err)
	assert.Contains(t, user, "Age: Not specified, Gender: Not specified, Weight: Not specified, Activity Level: light")
	assert.NotContains(t, user, "0kg")
}
