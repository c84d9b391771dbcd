package coach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/apperr"
	"fitcoach/internal/gpt"
	"fitcoach/internal/models"
)

type fakeCompleter struct {
	resp  *gpt.Completion
	err   error
	calls []gpt.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req gpt.Request) (*gpt.Completion, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newCoach(f *fakeCompleter) *Coach {
	c := New(f, nil)
	c.now = func() time.Time { return fixedNow }
	return c
}

func profile() models.Profile {
	return models.Profile{
		Age:              30,
		Gender:           models.GenderMale,
		Height:           175,
		Weight:           70,
		FitnessGoal:      models.GoalWeightLoss,
		ActivityLevel:    models.ActivityModerate,
		DietPreference:   models.DietVegetarian,
		HealthConditions: []models.HealthCondition{models.ConditionDiabetes},
		TargetCalories:   2127,
	}
}

const workoutReply = "```json\n" + `{"name":"Cut Week","description":"d","duration":"1 week","exercises":[{"day":"Monday","exercises":[{"name":"Row","sets":3,"reps":"12"}]}]}` + "\n```"

const mealReply = `{"name":"Green Week","description":"d","days":[{"day":"Monday","meals":[{"type":"lunch","name":"Dal","ingredients":["lentils"],"calories":500,"protein":25,"carbs":60,"fats":12}]}]}`

func TestGenerateWorkoutPlan(t *testing.T) {
	f := &fakeCompleter{resp: &gpt.Completion{Text: workoutReply, FinishReason: "stop"}}

	plan, err := newCoach(f).GenerateWorkoutPlan(context.Background(), profile())
	require.NoError(t, err)

	assert.Equal(t, "Cut Week", plan.Name)
	assert.True(t, plan.AIGenerated)
	assert.Equal(t, fixedNow, plan.GeneratedAt)
	assert.Equal(t, models.GoalWeightLoss, plan.Goal)

	require.Len(t, f.calls, 1)
	assert.InDelta(t, 0.7, f.calls[0].Temperature, 1e-6)
	assert.Equal(t, 4096, f.calls[0].MaxTokens)
	assert.NotEmpty(t, f.calls[0].System)
	require.Len(t, f.calls[0].Messages, 1)
	assert.Equal(t, gpt.RoleUser, f.calls[0].Messages[0].Role)
}

func TestGenerateMealPlanStampsProfile(t *testing.T) {
	f := &fakeCompleter{resp: &gpt.Completion{Text: mealReply}}

	plan, err := newCoach(f).GenerateMealPlan(context.Background(), profile())
	require.NoError(t, err)

	assert.Equal(t, models.DietVegetarian, plan.DietType)
	assert.Equal(t, []models.HealthCondition{models.ConditionDiabetes}, plan.HealthConditions)
	assert.Equal(t, 2127.0, plan.TargetCalories)
	assert.Contains(t, f.calls[0].Messages[0].Content, "diabetes management")
}

func TestTruncatedReplyIsNeverParsed(t *testing.T) {
	// Valid JSON on purpose: truncation must win even when the text would parse.
	f := &fakeCompleter{resp: &gpt.Completion{Text: mealReply, Truncated: true, FinishReason: "length"}}

	_, err := newCoach(f).GenerateMealPlan(context.Background(), profile())
	assert.True(t, apperr.Is(err, apperr.PlanTruncated), "got %v", err)
}

func TestIncompleteProfileSkipsProvider(t *testing.T) {
	f := &fakeCompleter{}
	p := profile()
	p.Age = 0

	_, err := newCoach(f).GenerateWorkoutPlan(context.Background(), p)
	assert.True(t, apperr.Is(err, apperr.IncompleteProfile))
	assert.Empty(t, f.calls)
}

func TestProviderErrorPassesThrough(t *testing.T) {
	f := &fakeCompleter{err: apperr.New(apperr.ProviderUnavailable, "down")}

	_, err := newCoach(f).GenerateMealPlan(context.Background(), profile())
	assert.True(t, apperr.Is(err, apperr.ProviderUnavailable))
	assert.Len(t, f.calls, 1)
}

func TestInvalidMealTypeSurfaces(t *testing.T) {
	reply := `{"name":"x","days":[{"day":"Monday","meals":[{"type":"snacks","name":"Nuts"}]}]}`
	f := &fakeCompleter{resp: &gpt.Completion{Text: reply}}

	_, err := newCoach(f).GenerateMealPlan(context.Background(), profile())
	assert.True(t, apperr.Is(err, apperr.InvalidMealType))
}

func TestChatForwardsHistoryAndReturnsRawText(t *testing.T) {
	reply := "  Keep going! ```tip``` Drink water.  "
	f := &fakeCompleter{resp: &gpt.Completion{Text: reply}}
	history := []gpt.Message{
		{Role: gpt.RoleUser, Content: "hi"},
		{Role: gpt.RoleAssistant, Content: "hello"},
	}

	got, err := newCoach(f).Chat(context.Background(), "how much water?", profile(), history)
	require.NoError(t, err)
	assert.Equal(t, reply, got)

	req := f.calls[0]
	assert.InDelta(t, 0.8, req.Temperature, 1e-6)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.Contains(t, req.System, "Age: 30")
	require.Len(t, req.Messages, 3)
	assert.Equal(t, gpt.Message{Role: gpt.RoleUser, Content: "how much water?"}, req.Messages[2])
}
