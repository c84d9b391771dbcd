// Package planparse turns raw model output into validated plans.
//
// Validation is all-or-nothing: one bad field rejects the whole plan. Quantities
// such as sets, reps and nutrition values are passed through as received.
package planparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"fitcoach/internal/apperr"
	"fitcoach/internal/models"
)

// fence matches an opening or closing triple-backtick marker with an optional
// language tag and the whitespace that follows it.
var fence = regexp.MustCompile("```[A-Za-z0-9_+-]*\\s*")

type workoutPayload struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Duration    string              `json:"duration"`
	Exercises   []models.WorkoutDay `json:"exercises"`
}

type mealPayload struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	TargetCalories models.Quantity  `json:"targetCalories"`
	Days           []models.MealDay `json:"days"`
}

// Clean trims the text, strips code fences until none remain, and if the rest
// is not a bare object narrows it to the span from the first '{' to the last '}'.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := strings.TrimSpace(fence.ReplaceAllString(s, ""))
		if next == s {
			break
		}
		s = next
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseWorkoutPlan validates a workout plan payload. Only the model-supplied
// fields are populated; ownership and timestamps are left to the caller.
func ParseWorkoutPlan(raw string) (*models.WorkoutPlan, error) {
	cleaned := Clean(raw)
	fields, err := decodeObject(raw, cleaned)
	if err != nil {
		return nil, err
	}
	if err := requireName(fields); err != nil {
		return nil, err
	}
	if _, err := requireList(fields, "exercises"); err != nil {
		return nil, err
	}

	var payload workoutPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, apperr.Wrap(apperr.InvalidPlanStructure, "workout plan has wrongly typed fields", err)
	}
	for _, day := range payload.Exercises {
		for _, ex := range day.Exercises {
			if negative(ex.Sets) {
				return nil, &apperr.Error{
					Kind:    apperr.InvalidPlanStructure,
					Message: fmt.Sprintf("negative set count for exercise %q", ex.Name),
					Value:   ex.Name,
				}
			}
		}
	}

	return &models.WorkoutPlan{
		Name:        payload.Name,
		Description: payload.Description,
		Duration:    payload.Duration,
		Exercises:   payload.Exercises,
	}, nil
}

// ParseMealPlan validates a meal plan payload, including the closed meal-type
// enum on every meal.
func ParseMealPlan(raw string) (*models.MealPlan, error) {
	cleaned := Clean(raw)
	fields, err := decodeObject(raw, cleaned)
	if err != nil {
		return nil, err
	}
	if err := requireName(fields); err != nil {
		return nil, err
	}
	days, err := requireList(fields, "days")
	if err != nil {
		return nil, err
	}
	for i, day := range days {
		if err := checkMealDay(i, day); err != nil {
			return nil, err
		}
	}

	var payload mealPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, apperr.Wrap(apperr.InvalidPlanStructure, "meal plan has wrongly typed fields", err)
	}
	for _, day := range payload.Days {
		for _, meal := range day.Meals {
			if negative(meal.Calories, meal.Protein, meal.Carbs, meal.Fats) {
				return nil, &apperr.Error{
					Kind:    apperr.InvalidPlanStructure,
					Message: fmt.Sprintf("negative nutrition value in meal %q on %s", meal.Name, day.Day),
					Value:   meal.Name,
				}
			}
		}
	}

	// A non-numeric target is dropped; the caller fills it from the profile.
	target, _ := payload.TargetCalories.Float()
	return &models.MealPlan{
		Name:           payload.Name,
		Description:    payload.Description,
		TargetCalories: target,
		Days:           payload.Days,
	}, nil
}

// negative reports whether any quantity is a number below zero. Text values
// such as "8-12" are not numbers and pass.
func negative(qs ...models.Quantity) bool {
	for _, q := range qs {
		if f, ok := q.Float(); ok && f < 0 {
			return true
		}
	}
	return false
}

func decodeObject(raw, cleaned string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(cleaned), &fields)
	if err == nil && fields == nil {
		err = fmt.Errorf("payload is null")
	}
	if err != nil {
		return nil, &apperr.Error{
			Kind:           apperr.MalformedPlanPayload,
			Message:        "plan payload is not a valid JSON object",
			RawExcerpt:     apperr.Excerpt(raw),
			CleanedExcerpt: apperr.Excerpt(cleaned),
			Err:            err,
		}
	}
	return fields, nil
}

func requireName(fields map[string]json.RawMessage) error {
	var name string
	if raw, ok := fields["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	if strings.TrimSpace(name) == "" {
		return apperr.New(apperr.InvalidPlanStructure, "invalid plan structure: missing required field \"name\"")
	}
	return nil
}

func requireList(fields map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, apperr.New(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid plan structure: missing required field %q", key))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, apperr.New(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid plan structure: %q must be a list", key))
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid plan structure: %q must not be empty", key))
	}
	return items, nil
}

func checkMealDay(index int, raw json.RawMessage) error {
	var day struct {
		Day   *string           `json:"day"`
		Meals []json.RawMessage `json:"meals"`
	}
	if err := json.Unmarshal(raw, &day); err != nil {
		return apperr.Wrap(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid day structure at index %d", index), err)
	}
	label := fmt.Sprintf("day %d", index+1)
	if day.Day == nil || strings.TrimSpace(*day.Day) == "" {
		return apperr.New(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid day structure: %s has no day label", label))
	}
	label = *day.Day
	if len(day.Meals) == 0 {
		return apperr.New(apperr.InvalidPlanStructure,
			fmt.Sprintf("invalid day structure: %s has no meals", label))
	}

	for _, mealRaw := range day.Meals {
		var meal map[string]json.RawMessage
		if err := json.Unmarshal(mealRaw, &meal); err != nil || meal == nil {
			return apperr.New(apperr.InvalidPlanStructure,
				fmt.Sprintf("invalid meal entry on %s", label))
		}
		var mealType string
		typeRaw, present := meal["type"]
		if !present || json.Unmarshal(typeRaw, &mealType) != nil {
			value := strings.TrimSpace(string(typeRaw))
			return &apperr.Error{
				Kind:    apperr.InvalidMealType,
				Message: fmt.Sprintf("invalid meal type: %s. Must be breakfast, lunch, dinner, or snack", orMissing(value)),
				Value:   value,
			}
		}
		if !models.MealType(mealType).Valid() {
			return &apperr.Error{
				Kind:    apperr.InvalidMealType,
				Message: fmt.Sprintf("invalid meal type: %s. Must be breakfast, lunch, dinner, or snack", orMissing(mealType)),
				Value:   mealType,
			}
		}
	}
	return nil
}

func orMissing(s string) string {
	if s == "" {
		return "<missing>"
	}
	return s
}
