package models

import "time"

// MealType is the closed set of meal tags a meal plan may carry.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the accepted meal tags in prompt order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Valid is case-sensitive: "Snack" and "snacks" are rejected.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

type Exercise struct {
	Name         string   `json:"name" bson:"name"`
	Sets         Quantity `json:"sets,omitempty" bson:"sets,omitempty"`
	Reps         Quantity `json:"reps,omitempty" bson:"reps,omitempty"`
	Duration     Quantity `json:"duration,omitempty" bson:"duration,omitempty"`
	RestTime     Quantity `json:"restTime,omitempty" bson:"restTime,omitempty"`
	Instructions string   `json:"instructions,omitempty" bson:"instructions,omitempty"`
	MuscleGroup  string   `json:"muscleGroup,omitempty" bson:"muscleGroup,omitempty"`
}

type WorkoutDay struct {
	Day       string     `json:"day" bson:"day"`
	Exercises []Exercise `json:"exercises" bson:"exercises"`
}

// WorkoutPlan is persisted as a single document and never edited afterwards.
type WorkoutPlan struct {
	ID          string       `json:"_id" bson:"_id"`
	UserID      string       `json:"user" bson:"user"`
	Name        string       `json:"name" bson:"name"`
	Description string       `json:"description" bson:"description"`
	Goal        FitnessGoal  `json:"goal,omitempty" bson:"goal,omitempty"`
	Duration    string       `json:"duration,omitempty" bson:"duration,omitempty"`
	Exercises   []WorkoutDay `json:"exercises" bson:"exercises"`
	AIGenerated bool         `json:"aiGenerated" bson:"aiGenerated"`
	GeneratedAt time.Time    `json:"generatedAt" bson:"generatedAt"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
}

type Meal struct {
	Type         MealType `json:"type" bson:"type"`
	Name         string   `json:"name" bson:"name"`
	Ingredients  []string `json:"ingredients" bson:"ingredients"`
	Calories     Quantity `json:"calories,omitempty" bson:"calories,omitempty"`
	Protein      Quantity `json:"protein,omitempty" bson:"protein,omitempty"`
	Carbs        Quantity `json:"carbs,omitempty" bson:"carbs,omitempty"`
	Fats         Quantity `json:"fats,omitempty" bson:"fats,omitempty"`
	Instructions string   `json:"instructions,omitempty" bson:"instructions,omitempty"`
	PrepTime     Quantity `json:"prepTime,omitempty" bson:"prepTime,omitempty"`
}

type MealDay struct {
	Day   string `json:"day" bson:"day"`
	Meals []Meal `json:"meals" bson:"meals"`
}

type MealPlan struct {
	ID               string            `json:"_id" bson:"_id"`
	UserID           string            `json:"user" bson:"user"`
	Name             string            `json:"name" bson:"name"`
	Description      string            `json:"description" bson:"description"`
	TargetCalories   float64           `json:"targetCalories,omitempty" bson:"targetCalories,omitempty"`
	Days             []MealDay         `json:"days" bson:"days"`
	DietType         DietPreference    `json:"dietType,omitempty" bson:"dietType,omitempty"`
	HealthConditions []HealthCondition `json:"healthConditions,omitempty" bson:"healthConditions,omitempty"`
	AIGenerated      bool              `json:"aiGenerated" bson:"aiGenerated"`
	GeneratedAt      time.Time         `json:"generatedAt" bson:"generatedAt"`
	CreatedAt        time.Time         `json:"createdAt" bson:"createdAt"`
}

// ProgressEntry is append-only; entries are read back in insertion order.
type ProgressEntry struct {
	ID     string    `json:"_id" bson:"_id"`
	Date   time.Time `json:"date" bson:"date"`
	Weight float64   `json:"weight" bson:"weight"`
	Notes  string    `json:"notes,omitempty" bson:"notes,omitempty"`
}
