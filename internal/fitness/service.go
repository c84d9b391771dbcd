// Package fitness is the application service behind the REST API and the
// Telegram coach: accounts, profiles, calorie targets, plans, progress, chat
// and premium billing.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitcoach/internal/auth"
	"fitcoach/internal/energy"
	"fitcoach/internal/gpt"
	"fitcoach/internal/models"
	"fitcoach/internal/payment"
	"fitcoach/pkg/logger"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrPremiumRequired    = errors.New("premium subscription required")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBillingDisabled    = errors.New("billing is not configured")
)

// MaxChatHistory bounds the prior turns forwarded to the model.
const MaxChatHistory = 20

// Repository captures persistence. Lookups return (nil, nil) when nothing
// matches; deletes report whether a row was removed.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SetTargetCalories(ctx context.Context, userID string, calories int) error
	SetPremium(ctx context.Context, userID string, premium bool) error

	SaveWorkoutPlan(ctx context.Context, plan *models.WorkoutPlan) error
	ListWorkoutPlans(ctx context.Context, userID string) ([]models.WorkoutPlan, error)
	GetWorkoutPlan(ctx context.Context, userID, planID string) (*models.WorkoutPlan, error)
	DeleteWorkoutPlan(ctx context.Context, userID, planID string) (bool, error)

	SaveMealPlan(ctx context.Context, plan *models.MealPlan) error
	ListMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error)
	GetMealPlan(ctx context.Context, userID, planID string) (*models.MealPlan, error)
	DeleteMealPlan(ctx context.Context, userID, planID string) (bool, error)

	AppendProgress(ctx context.Context, userID string, entry models.ProgressEntry) error
	ListProgress(ctx context.Context, userID string) ([]models.ProgressEntry, error)

	SavePayment(ctx context.Context, p *models.Payment) error
	// CompletePayment marks the payment for a checkout session completed and
	// returns it, or nil when the session is unknown.
	CompletePayment(ctx context.Context, sessionID string) (*models.Payment, error)
}

// Generator produces plans and chat replies. *coach.Coach satisfies it.
type Generator interface {
	GenerateWorkoutPlan(ctx context.Context, p models.Profile) (*models.WorkoutPlan, error)
	GenerateMealPlan(ctx context.Context, p models.Profile) (*models.MealPlan, error)
	Chat(ctx context.Context, message string, p models.Profile, history []gpt.Message) (string, error)
}

// Billing starts checkout sessions. *payment.StripeClient satisfies it.
type Billing interface {
	CreateCheckoutSession(userID string) (*payment.Session, error)
}

type Options struct {
	Auth           auth.Config
	RequirePremium bool
}

type Service struct {
	repo    Repository
	gen     Generator
	billing Billing
	opts    Options
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, gen Generator, opts Options, l *logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{repo: repo, gen: gen, opts: opts, logger: l, now: func() time.Time { return time.Now().UTC() }}
}

// WithBilling enables checkout. Without it StartCheckout returns ErrBillingDisabled.
func (s *Service) WithBilling(b Billing) *Service {
	s.billing = b
	return s
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, invalid("a valid email is required")
	case len(in.Password) < auth.MinPasswordLength:
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	case name == "":
		return nil, invalid("name is required")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Profile: models.Profile{
			HealthConditions: []models.HealthCondition{},
			Allergies:        []string{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Infow("User registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *Service) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.Issue(user.ID, user.Email, s.opts.Auth, s.now())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// User fetches a user by ID.
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UserByTelegram resolves the account linked to a Telegram user.
func (s *Service) UserByTelegram(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) LinkTelegram(ctx context.Context, userID string, telegramID int64) (*models.User, error) {
	if telegramID <= 0 {
		return nil, invalid("telegramId must be a positive number")
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.TelegramID = telegramID
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CalculateCalories computes the user's energy targets and persists the
// calorie target on the profile.
func (s *Service) CalculateCalories(ctx context.Context, userID string) (energy.Targets, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return energy.Targets{}, err
	}
	targets, err := energy.Compute(user.Profile)
	if err != nil {
		return energy.Targets{}, err
	}
	if err := s.repo.SetTargetCalories(ctx, userID, targets.TargetCalories); err != nil {
		return energy.Targets{}, fmt.Errorf("save target calories: %w", err)
	}
	return targets, nil
}

// GenerateWorkoutPlan generates and stores a new workout plan. Two concurrent
// calls produce two independent plans.
func (s *Service) GenerateWorkoutPlan(ctx context.Context, userID string) (*models.WorkoutPlan, error) {
	user, err := s.planOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.gen.GenerateWorkoutPlan(ctx, user.Profile)
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	plan.UserID = userID
	plan.CreatedAt = s.now()
	if err := s.repo.SaveWorkoutPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save workout plan: %w", err)
	}
	s.logger.Infow("Workout plan generated", "user_id", userID, "plan_id", plan.ID, "days", len(plan.Exercises))
	return plan, nil
}

func (s *Service) GenerateMealPlan(ctx context.Context, userID string) (*models.MealPlan, error) {
	user, err := s.planOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.gen.GenerateMealPlan(ctx, user.Profile)
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	plan.UserID = userID
	plan.CreatedAt = s.now()
	if err := s.repo.SaveMealPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save meal plan: %w", err)
	}
	s.logger.Infow("Meal plan generated", "user_id", userID, "plan_id", plan.ID, "days", len(plan.Days))
	return plan, nil
}

func (s *Service) planOwner(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.opts.RequirePremium && !user.Premium {
		return nil, ErrPremiumRequired
	}
	return user, nil
}

func (s *Service) WorkoutPlans(ctx context.Context, userID string) ([]models.WorkoutPlan, error) {
	return s.repo.ListWorkoutPlans(ctx, userID)
}

func (s *Service) WorkoutPlan(ctx context.Context, userID, planID string) (*models.WorkoutPlan, error) {
	plan, err := s.repo.GetWorkoutPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) DeleteWorkoutPlan(ctx context.Context, userID, planID string) error {
	deleted, err := s.repo.DeleteWorkoutPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPlanNotFound
	}
	return nil
}

func (s *Service) MealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	return s.repo.ListMealPlans(ctx, userID)
}

func (s *Service) MealPlan(ctx context.Context, userID, planID string) (*models.MealPlan, error) {
	plan, err := s.repo.GetMealPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) DeleteMealPlan(ctx context.Context, userID, planID string) error {
	deleted, err := s.repo.DeleteMealPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPlanNotFound
	}
	return nil
}

// LogProgress appends a weigh-in dated now and returns the full log.
func (s *Service) LogProgress(ctx context.Context, userID string, weight float64, notes string) ([]models.ProgressEntry, error) {
	if weight <= 0 {
		return nil, invalid("weight must be a positive number")
	}
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	entry := models.ProgressEntry{
		ID:     uuid.NewString(),
		Date:   s.now(),
		Weight: weight,
		Notes:  strings.TrimSpace(notes),
	}
	if err := s.repo.AppendProgress(ctx, userID, entry); err != nil {
		return nil, fmt.Errorf("append progress: %w", err)
	}
	return s.repo.ListProgress(ctx, userID)
}

func (s *Service) Progress(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListProgress(ctx, userID)
}

// Chat sends one coaching message. Only user and assistant turns are accepted
// in history, and only the most recent MaxChatHistory are forwarded.
func (s *Service) Chat(ctx context.Context, userID, message string, history []gpt.Message) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", invalid("Message is required")
	}
	for _, m := range history {
		if m.Role != gpt.RoleUser && m.Role != gpt.RoleAssistant {
			return "", invalid(fmt.Sprintf("unsupported history role %q", m.Role))
		}
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.gen.Chat(ctx, message, user.Profile, TrimHistory(history))
}

// TrimHistory keeps the last MaxChatHistory messages.
func TrimHistory(history []gpt.Message) []gpt.Message {
	if len(history) <= MaxChatHistory {
		return history
	}
	return history[len(history)-MaxChatHistory:]
}

// StartCheckout opens a Stripe checkout session and records a pending payment.
func (s *Service) StartCheckout(ctx context.Context, userID string) (*payment.Session, error) {
	if s.billing == nil {
		return nil, ErrBillingDisabled
	}
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	sess, err := s.billing.CreateCheckoutSession(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.SavePayment(ctx, &models.Payment{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          sess.Amount,
		Currency:        sess.Currency,
		StripeSessionID: sess.ID,
		Status:          models.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	return sess, nil
}

// CompleteCheckout is driven by the Stripe webhook: it marks the payment
// completed and grants premium. Unknown sessions are ignored.
func (s *Service) CompleteCheckout(ctx context.Context, sess *payment.Session) error {
	p, err := s.repo.CompletePayment(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	if p == nil {
		s.logger.Warnw("Checkout completed for unknown session", "session_id", sess.ID)
		return nil
	}
	if err := s.repo.SetPremium(ctx, p.UserID, true); err != nil {
		return fmt.Errorf("grant premium: %w", err)
	}
	s.logger.Infow("Premium granted", "user_id", p.UserID, "session_id", sess.ID)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
