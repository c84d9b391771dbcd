package bot

import (
	"errors"
	"fmt"
	"strings"

	"fitcoach/internal/apperr"
	"fitcoach/internal/energy"
	"fitcoach/internal/fitness"
	"fitcoach/internal/models"
)

// telegramLimit is Telegram's maximum message length, in characters.
const telegramLimit = 4096

func formatTargets(t energy.Targets) string {
	return fmt.Sprintf("🔥 Your daily energy\n\nBMR: %d kcal\nTDEE: %d kcal\nTarget: %d kcal/day", t.BMR, t.TDEE, t.TargetCalories)
}

func formatWorkoutPlan(p *models.WorkoutPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏋️ %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", p.Description)
	}
	for _, day := range p.Exercises {
		fmt.Fprintf(&b, "\n%s\n", day.Day)
		if len(day.Exercises) == 0 {
			b.WriteString("  Rest day\n")
		}
		for _, ex := range day.Exercises {
			fmt.Fprintf(&b, "• %s", ex.Name)
			switch {
			case ex.Sets != "" && ex.Reps != "":
				fmt.Fprintf(&b, ": %s x %s", ex.Sets, ex.Reps)
			case ex.Duration != "":
				fmt.Fprintf(&b, ": %s", ex.Duration)
			}
			if ex.RestTime != "" {
				fmt.Fprintf(&b, " (rest %s)", ex.RestTime)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatMealPlan(p *models.MealPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🥗 %s\n", p.Name)
	if p.TargetCalories > 0 {
		fmt.Fprintf(&b, "Target: %.0f kcal/day\n", p.TargetCalories)
	}
	for _, day := range p.Days {
		fmt.Fprintf(&b, "\n%s\n", day.Day)
		for _, m := range day.Meals {
			fmt.Fprintf(&b, "• %s: %s (%s kcal, P %sg / C %sg / F %sg)\n",
				m.Type, m.Name, orUnknown(m.Calories), orUnknown(m.Protein), orUnknown(m.Carbs), orUnknown(m.Fats))
		}
	}
	return b.String()
}

func orUnknown(q models.Quantity) string {
	if q == "" {
		return "?"
	}
	return q.String()
}

// userMessage turns a service error into chat text. Internals are never shown.
func userMessage(err error, telegramID int64) string {
	switch {
	case errors.Is(err, fitness.ErrUserNotFound):
		return fmt.Sprintf("Your Telegram account is not linked yet. Your Telegram ID is %d: add it to your profile in the app, then try again.", telegramID)
	case errors.Is(err, fitness.ErrPremiumRequired):
		return "Plan generation needs a premium account. Upgrade in the app to continue."
	case errors.Is(err, fitness.ErrInvalidInput):
		return strings.TrimPrefix(err.Error(), fitness.ErrInvalidInput.Error()+": ")
	case apperr.KindOf(err) != "":
		return apperr.PublicMessage(err)
	}
	return "Something went wrong. Please try again later."
}

// splitMessage breaks text into Telegram-sized chunks, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
