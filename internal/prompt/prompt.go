// Package prompt renders the instructions sent to the language model.
// Builders are pure: no I/O, and they fail fast when the profile lacks the
// fields a plan type depends on.
package prompt

import (
	"fmt"
	"strings"

	"fitcoach/internal/apperr"
	"fitcoach/internal/models"
)

const (
	workoutSystem = "You are a professional fitness trainer. Return ONLY valid JSON with no markdown formatting, no code blocks, and no additional text."
	mealSystem    = "You are a professional nutritionist. Return ONLY valid JSON with no markdown formatting, no code blocks, and no additional text."
)

const workoutSchema = `{
  "name": "Plan name",
  "description": "Brief description",
  "duration": "1 week",
  "exercises": [
    {
      "day": "Monday",
      "exercises": [
        {
          "name": "Exercise name",
          "sets": 3,
          "reps": "10-12",
          "duration": "30 minutes",
          "restTime": "60 seconds",
          "instructions": "How to perform",
          "muscleGroup": "Target muscle"
        }
      ]
    }
  ]
}`

const mealSchema = `{
  "name": "Plan name",
  "description": "Brief description",
  "targetCalories": %d,
  "days": [
    {
      "day": "Monday",
      "meals": [
        {
          "type": "breakfast",
          "name": "Meal name",
          "ingredients": ["ingredient1", "ingredient2"],
          "calories": 400,
          "protein": 20,
          "carbs": 50,
          "fats": 15,
          "instructions": "How to prepare",
          "prepTime": "15 minutes"
        }
      ]
    }
  ]
}`

// Workout returns the system and user instructions for a 7-day workout plan.
// Requires age, weight and fitness goal.
func Workout(p models.Profile) (system, user string, err error) {
	if p.Age <= 0 || p.Weight <= 0 || p.FitnessGoal == "" {
		return "", "", apperr.New(apperr.IncompleteProfile,
			"Please complete your profile first (age, weight, fitness goal)")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a personalized 7-day workout plan for a %d-year-old %s who weighs %gkg", p.Age, genderLabel(p.Gender), p.Weight)
	if p.Height > 0 {
		fmt.Fprintf(&b, " and is %gcm tall", p.Height)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Fitness Goal: %s\n", p.FitnessGoal)
	fmt.Fprintf(&b, "Activity Level: %s\n", orNotSpecified(string(p.ActivityLevel)))
	fmt.Fprintf(&b, "Health Conditions: %s\n", conditionList(p.HealthConditions))
	if p.TargetWeight > 0 {
		fmt.Fprintf(&b, "Target Weight: %gkg\n", p.TargetWeight)
	}
	b.WriteString("\nProvide a detailed workout plan in JSON format with the following structure:\n")
	b.WriteString(workoutSchema)
	b.WriteString("\n\nMake it realistic, safe, and effective for their profile.\n")
	b.WriteString("Return ONLY the JSON object, no markdown formatting, no explanation text, no code blocks.")

	return workoutSystem, b.String(), nil
}

// Meal returns the system and user instructions for a 7-day meal plan.
// Requires target calories and diet preference.
func Meal(p models.Profile) (system, user string, err error) {
	if p.TargetCalories <= 0 || p.DietPreference == "" {
		return "", "", apperr.New(apperr.IncompleteProfile,
			"Please complete your profile first (calories, diet preference)")
	}

	var b strings.Builder
	b.WriteString("Create a personalized 7-day meal plan with the following requirements:\n\n")
	fmt.Fprintf(&b, "Target Calories: %d per day\n", p.TargetCalories)
	fmt.Fprintf(&b, "Diet Preference: %s\n", p.DietPreference)
	if p.FitnessGoal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", p.FitnessGoal)
	}
	fmt.Fprintf(&b, "Health Conditions: %s\n", conditionList(p.HealthConditions))
	fmt.Fprintf(&b, "Allergies: %s\n", stringList(p.Allergies))
	fmt.Fprintf(&b, "Age: %s, Gender: %s, Weight: %s, Activity Level: %s\n",
		orNotSpecified(positive(float64(p.Age), "")),
		orNotSpecified(string(p.Gender)),
		orNotSpecified(positive(p.Weight, "kg")),
		orNotSpecified(string(p.ActivityLevel)))

	if guidance := conditionGuidance(p); guidance != "" {
		b.WriteString("\n")
		b.WriteString(guidance)
	}

	b.WriteString("\nProvide a detailed meal plan in JSON format with the following structure:\n")
	fmt.Fprintf(&b, mealSchema, p.TargetCalories)
	b.WriteString("\n\nIMPORTANT:\n")
	fmt.Fprintf(&b, "- The \"type\" field must be exactly one of: %s (singular, not \"snacks\").\n", mealTypeList())
	b.WriteString("- Include 3-4 meals per day. Ensure meals are balanced, nutritious, and appropriate for their health conditions.\n")
	b.WriteString("- Never include ingredients the user is allergic to.\n")
	b.WriteString("- Return ONLY the JSON object, no markdown formatting, no explanation text, no code blocks.")

	return mealSystem, b.String(), nil
}

// Coach returns the system instruction for a free-form coaching chat. Missing
// profile fields are rendered as "Not specified" rather than rejected.
func Coach(p models.Profile) string {
	var b strings.Builder
	b.WriteString("You are an AI fitness and nutrition coach. The user has the following profile:\n")
	if p.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	} else {
		b.WriteString("- Age: Not specified\n")
	}
	fmt.Fprintf(&b, "- Goal: %s\n", orNotSpecified(string(p.FitnessGoal)))
	fmt.Fprintf(&b, "- Activity Level: %s\n", orNotSpecified(string(p.ActivityLevel)))
	fmt.Fprintf(&b, "- Diet Preference: %s\n", orNotSpecified(string(p.DietPreference)))
	fmt.Fprintf(&b, "- Health Conditions: %s\n", conditionList(p.HealthConditions))
	if p.TargetCalories > 0 {
		fmt.Fprintf(&b, "- Daily Calorie Target: %d\n", p.TargetCalories)
	}
	b.WriteString("\nProvide personalized, motivating, and actionable advice. Be encouraging and supportive.")
	return b.String()
}

func conditionGuidance(p models.Profile) string {
	var lines []string
	if p.HasCondition(models.ConditionPCOS) {
		lines = append(lines, "Focus on low GI foods, high fiber, and balanced macros for PCOS management.")
	}
	if p.HasCondition(models.ConditionDiabetes) {
		lines = append(lines, "Focus on low sugar, complex carbs, and balanced meals for diabetes management.")
	}
	if p.HasCondition(models.ConditionHypertension) {
		lines = append(lines, "Keep sodium low for blood pressure management.")
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func mealTypeList() string {
	quoted := make([]string, len(models.MealTypes))
	for i, t := range models.MealTypes {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}

func conditionList(conditions []models.HealthCondition) string {
	out := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if c != models.ConditionNone && c != "" {
			out = append(out, string(c))
		}
	}
	return stringList(out)
}

func stringList(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "None"
	}
	return strings.Join(cleaned, ", ")
}

func genderLabel(g models.Gender) string {
	if g == "" {
		return "person"
	}
	return string(g)
}

// positive formats v with its unit, or returns "" when v is unset.
func positive(v float64, unit string) string {
	if v <= 0 {
		return ""
	}
	return fmt.Sprintf("%g%s", v, unit)
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
