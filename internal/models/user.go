// internal/models/user.go
package models

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type FitnessGoal string

const (
	GoalWeightLoss  FitnessGoal = "weight_loss"
	GoalMuscleGain  FitnessGoal = "muscle_gain"
	GoalMaintenance FitnessGoal = "maintenance"
	GoalEndurance   FitnessGoal = "endurance"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type DietPreference string

const (
	DietVegetarian    DietPreference = "vegetarian"
	DietNonVegetarian DietPreference = "non_vegetarian"
	DietVegan         DietPreference = "vegan"
	DietPescatarian   DietPreference = "pescatarian"
)

type HealthCondition string

const (
	ConditionPCOS         HealthCondition = "pcos"
	ConditionDiabetes     HealthCondition = "diabetes"
	ConditionHypertension HealthCondition = "hypertension"
	ConditionThyroid      HealthCondition = "thyroid"
	ConditionNone         HealthCondition = "none"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (g FitnessGoal) Valid() bool {
	switch g {
	case GoalWeightLoss, GoalMuscleGain, GoalMaintenance, GoalEndurance:
		return true
	}
	return false
}

func (a ActivityLevel) Valid() bool {
	switch a {
	case ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive, ActivityVeryActive:
		return true
	}
	return false
}

func (d DietPreference) Valid() bool {
	switch d {
	case DietVegetarian, DietNonVegetarian, DietVegan, DietPescatarian:
		return true
	}
	return false
}

func (h HealthCondition) Valid() bool {
	switch h {
	case ConditionPCOS, ConditionDiabetes, ConditionHypertension, ConditionThyroid, ConditionNone:
		return true
	}
	return false
}

// Profile holds the health attributes a user fills in before requesting plans.
// Zero values mean "not provided".
type Profile struct {
	Age              int               `json:"age,omitempty" bson:"age,omitempty"`
	Gender           Gender            `json:"gender,omitempty" bson:"gender,omitempty"`
	Height           float64           `json:"height,omitempty" bson:"height,omitempty"` // cm
	Weight           float64           `json:"weight,omitempty" bson:"weight,omitempty"` // kg
	TargetWeight     float64           `json:"targetWeight,omitempty" bson:"targetWeight,omitempty"`
	FitnessGoal      FitnessGoal       `json:"fitnessGoal,omitempty" bson:"fitnessGoal,omitempty"`
	ActivityLevel    ActivityLevel     `json:"activityLevel,omitempty" bson:"activityLevel,omitempty"`
	DietPreference   DietPreference    `json:"dietPreference,omitempty" bson:"dietPreference,omitempty"`
	HealthConditions []HealthCondition `json:"healthConditions" bson:"healthConditions"`
	Allergies        []string          `json:"allergies" bson:"allergies"`
	TargetCalories   int               `json:"targetCalories,omitempty" bson:"targetCalories,omitempty"`
}

// HasCondition reports whether c is among the profile's health conditions.
func (p Profile) HasCondition(c HealthCondition) bool {
	for _, hc := range p.HealthConditions {
		if hc == c {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Name         string    `json:"name" bson:"name"`
	TelegramID   int64     `json:"telegramId,omitempty" bson:"telegramId,omitempty"`
	Premium      bool      `json:"premium" bson:"premium"`
	Profile      Profile   `json:"profile" bson:"profile"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Payment struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user_id" bson:"userId"`
	Amount          int64     `json:"amount" bson:"amount"`
	Currency        string    `json:"currency" bson:"currency"`
	StripeSessionID string    `json:"stripe_session_id" bson:"stripeSessionId"`
	Status          string    `json:"status" bson:"status"`
	CreatedAt       time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updatedAt"`
}

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)
