package bot

import (
	"context"
	"fmt"
	"strings"

	"fitcoach/internal/energy"
	"fitcoach/internal/gpt"
	"fitcoach/internal/models"
	"fitcoach/pkg/logger"
)

// Service is the part of fitness.Service the bot drives.
type Service interface {
	UserByTelegram(ctx context.Context, telegramID int64) (*models.User, error)
	CalculateCalories(ctx context.Context, userID string) (energy.Targets, error)
	GenerateWorkoutPlan(ctx context.Context, userID string) (*models.WorkoutPlan, error)
	GenerateMealPlan(ctx context.Context, userID string) (*models.MealPlan, error)
	Chat(ctx context.Context, userID, message string, history []gpt.Message) (string, error)
}

// Incoming is a transport-neutral view of one Telegram message.
type Incoming struct {
	ChatID     int64
	TelegramID int64
	Command    string
	Text       string
}

const helpText = `I'm your AI fitness coach.

/calories - daily calorie targets
/workout - generate a workout plan
/meal - generate a meal plan
/reset - forget our conversation
/help - show this message

Anything else you send is a question for the coach.`

// Commands maps chat input to service calls and reply text.
type Commands struct {
	service Service
	history *History
	logger  *logger.Logger
}

func NewCommands(svc Service, history *History, l *logger.Logger) *Commands {
	if l == nil {
		l = logger.NewNop()
	}
	return &Commands{service: svc, history: history, logger: l}
}

// Handle returns the reply for one message. It never returns an empty string.
func (c *Commands) Handle(ctx context.Context, in Incoming) string {
	switch in.Command {
	case "start":
		return fmt.Sprintf("👋 Welcome! Your Telegram ID is %d. Link it to your account in the app, then use /help to see what I can do.", in.TelegramID)
	case "help":
		return helpText
	case "reset":
		c.history.Reset(in.ChatID)
		return "Conversation cleared."
	case "calories", "workout", "meal":
	case "":
		if strings.TrimSpace(in.Text) == "" {
			return helpText
		}
	default:
		return "Unknown command. Use /help to see what I can do."
	}

	user, err := c.service.UserByTelegram(ctx, in.TelegramID)
	if err != nil {
		return c.fail(in, err)
	}

	switch in.Command {
	case "calories":
		targets, err := c.service.CalculateCalories(ctx, user.ID)
		if err != nil {
			return c.fail(in, err)
		}
		return formatTargets(targets)
	case "workout":
		plan, err := c.service.GenerateWorkoutPlan(ctx, user.ID)
		if err != nil {
			return c.fail(in, err)
		}
		return formatWorkoutPlan(plan)
	case "meal":
		plan, err := c.service.GenerateMealPlan(ctx, user.ID)
		if err != nil {
			return c.fail(in, err)
		}
		return formatMealPlan(plan)
	}

	answer, err := c.service.Chat(ctx, user.ID, in.Text, c.history.Get(in.ChatID))
	if err != nil {
		return c.fail(in, err)
	}
	c.history.Record(in.ChatID, in.Text, answer)
	return answer
}

func (c *Commands) fail(in Incoming, err error) string {
	c.logger.Warnw("Telegram request failed",
		"chat_id", in.ChatID,
		"command", in.Command,
		"error", err)
	return userMessage(err, in.TelegramID)
}
