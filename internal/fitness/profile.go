package fitness

import (
	"context"
	"fmt"
	"strings"

	"fitcoach/internal/models"
)

// ProfilePatch carries the profile fields present in an update request.
// A nil field keeps the stored value.
type ProfilePatch struct {
	Age              *int                      `json:"age"`
	Gender           *models.Gender            `json:"gender"`
	Height           *float64                  `json:"height"`
	Weight           *float64                  `json:"weight"`
	TargetWeight     *float64                  `json:"targetWeight"`
	FitnessGoal      *models.FitnessGoal       `json:"fitnessGoal"`
	ActivityLevel    *models.ActivityLevel     `json:"activityLevel"`
	DietPreference   *models.DietPreference    `json:"dietPreference"`
	HealthConditions *[]models.HealthCondition `json:"healthConditions"`
	Allergies        *[]string                 `json:"allergies"`
}

type ProfileUpdate struct {
	Name    *string       `json:"name"`
	Profile *ProfilePatch `json:"profile"`
}

// Validate rejects out-of-range numbers and unknown enum values.
func (p *ProfilePatch) Validate() error {
	if p == nil {
		return nil
	}
	if p.Age != nil && (*p.Age <= 0 || *p.Age > 120) {
		return invalid("age must be between 1 and 120")
	}
	for name, v := range map[string]*float64{"height": p.Height, "weight": p.Weight, "targetWeight": p.TargetWeight} {
		if v != nil && *v <= 0 {
			return invalid(name + " must be a positive number")
		}
	}
	if p.Gender != nil && !p.Gender.Valid() {
		return invalid(fmt.Sprintf("invalid gender %q", *p.Gender))
	}
	if p.FitnessGoal != nil && !p.FitnessGoal.Valid() {
		return invalid(fmt.Sprintf("invalid fitnessGoal %q", *p.FitnessGoal))
	}
	if p.ActivityLevel != nil && !p.ActivityLevel.Valid() {
		return invalid(fmt.Sprintf("invalid activityLevel %q", *p.ActivityLevel))
	}
	if p.DietPreference != nil && !p.DietPreference.Valid() {
		return invalid(fmt.Sprintf("invalid dietPreference %q", *p.DietPreference))
	}
	if p.HealthConditions != nil {
		for _, c := range *p.HealthConditions {
			if !c.Valid() {
				return invalid(fmt.Sprintf("invalid health condition %q", c))
			}
		}
	}
	return nil
}

// Apply merges the patch over a stored profile. Calorie targets are not
// patchable; they come from CalculateCalories.
func (p *ProfilePatch) Apply(dst *models.Profile) {
	if p == nil {
		return
	}
	if p.Age != nil {
		dst.Age = *p.Age
	}
	if p.Gender != nil {
		dst.Gender = *p.Gender
	}
	if p.Height != nil {
		dst.Height = *p.Height
	}
	if p.Weight != nil {
		dst.Weight = *p.Weight
	}
	if p.TargetWeight != nil {
		dst.TargetWeight = *p.TargetWeight
	}
	if p.FitnessGoal != nil {
		dst.FitnessGoal = *p.FitnessGoal
	}
	if p.ActivityLevel != nil {
		dst.ActivityLevel = *p.ActivityLevel
	}
	if p.DietPreference != nil {
		dst.DietPreference = *p.DietPreference
	}
	if p.HealthConditions != nil {
		dst.HealthConditions = append([]models.HealthCondition{}, (*p.HealthConditions)...)
	}
	if p.Allergies != nil {
		allergies := make([]string, 0, len(*p.Allergies))
		for _, a := range *p.Allergies {
			if a = strings.TrimSpace(a); a != "" {
				allergies = append(allergies, a)
			}
		}
		dst.Allergies = allergies
	}
}

// UpdateProfile applies a shallow merge of the provided fields.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if err := upd.Profile.Validate(); err != nil {
		return nil, err
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		user.Name = name
	}
	upd.Profile.Apply(&user.Profile)
	user.UpdatedAt = s.now()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
