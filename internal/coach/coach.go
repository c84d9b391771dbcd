// Package coach runs one generation end to end: prompt, completion,
// truncation check, validation. It never retries and never persists.
package coach

import (
	"context"
	"errors"
	"time"

	"fitcoach/internal/apperr"
	"fitcoach/internal/gpt"
	"fitcoach/internal/models"
	"fitcoach/internal/observability"
	"fitcoach/internal/planparse"
	"fitcoach/internal/prompt"
	"fitcoach/pkg/logger"
)

const (
	planTemperature = 0.7
	planMaxTokens   = 4096
	chatTemperature = 0.8
	chatMaxTokens   = 2000
)

// Completer is the provider-neutral completion call. *gpt.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req gpt.Request) (*gpt.Completion, error)
}

type Coach struct {
	llm    Completer
	logger *logger.Logger
	now    func() time.Time
}

func New(llm Completer, l *logger.Logger) *Coach {
	if l == nil {
		l = logger.NewNop()
	}
	return &Coach{llm: llm, logger: l, now: time.Now}
}

// GenerateWorkoutPlan returns a validated workout plan stamped as AI-generated.
// ID, owner and CreatedAt are left for the caller to assign.
func (c *Coach) GenerateWorkoutPlan(ctx context.Context, p models.Profile) (*models.WorkoutPlan, error) {
	system, user, err := prompt.Workout(p)
	if err != nil {
		return nil, c.finish("workout", err)
	}

	text, err := c.completePlan(ctx, "workout", system, user)
	if err != nil {
		return nil, c.finish("workout", err)
	}

	plan, err := planparse.ParseWorkoutPlan(text)
	if err != nil {
		c.logPayloadError("workout", err)
		return nil, c.finish("workout", err)
	}

	plan.AIGenerated = true
	plan.GeneratedAt = c.now()
	plan.Goal = p.FitnessGoal
	return plan, c.finish("workout", nil)
}

// GenerateMealPlan returns a validated meal plan stamped with the profile's
// diet type and health conditions.
func (c *Coach) GenerateMealPlan(ctx context.Context, p models.Profile) (*models.MealPlan, error) {
	system, user, err := prompt.Meal(p)
	if err != nil {
		return nil, c.finish("meal", err)
	}

	text, err := c.completePlan(ctx, "meal", system, user)
	if err != nil {
		return nil, c.finish("meal", err)
	}

	plan, err := planparse.ParseMealPlan(text)
	if err != nil {
		c.logPayloadError("meal", err)
		return nil, c.finish("meal", err)
	}

	plan.AIGenerated = true
	plan.GeneratedAt = c.now()
	plan.DietType = p.DietPreference
	plan.HealthConditions = p.HealthConditions
	if plan.TargetCalories == 0 {
		plan.TargetCalories = float64(p.TargetCalories)
	}
	return plan, c.finish("meal", nil)
}

// Chat answers one coaching message. The reply text is returned unmodified.
// history must already be limited to user and assistant turns.
func (c *Coach) Chat(ctx context.Context, message string, p models.Profile, history []gpt.Message) (string, error) {
	messages := make([]gpt.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, gpt.Message{Role: gpt.RoleUser, Content: message})

	resp, err := c.llm.Complete(ctx, gpt.Request{
		System:      prompt.Coach(p),
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", c.finish("chat", err)
	}
	if resp.Truncated {
		c.logger.Warnw("Chat reply hit the token limit", "finish_reason", resp.FinishReason)
	}
	return resp.Text, c.finish("chat", nil)
}

func (c *Coach) completePlan(ctx context.Context, kind, system, user string) (string, error) {
	resp, err := c.llm.Complete(ctx, gpt.Request{
		System:      system,
		Messages:    []gpt.Message{{Role: gpt.RoleUser, Content: user}},
		Temperature: planTemperature,
		MaxTokens:   planMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp.Truncated {
		c.logger.Warnw("Plan generation truncated",
			"kind", kind,
			"finish_reason", resp.FinishReason,
			"response_length", len(resp.Text))
		return "", apperr.New(apperr.PlanTruncated, "response exceeded the token budget")
	}
	return resp.Text, nil
}

func (c *Coach) logPayloadError(kind string, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return
	}
	c.logger.Errorw("Model returned an unusable plan",
		"kind", kind,
		"error_kind", e.Kind,
		"error", e.Error(),
		"value", e.Value,
		"raw_excerpt", e.RawExcerpt,
		"cleaned_excerpt", e.CleanedExcerpt)
}

func (c *Coach) finish(kind string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "internal"
		}
	}
	observability.RecordGeneration(kind, outcome)
	return err
}
